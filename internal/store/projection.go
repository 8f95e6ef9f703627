package store

import (
	"github.com/pkg/errors"

	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/orm"
)

// Row is one rendered row of a projection.
type Row struct {
	ID    int64
	State models.State
	// Cells holds the formatted visible fields followed by the action labels.
	Cells []string
}

// Projection is a read-only table view of the store's filtered collection
// through a mapping set: its visible fields, then one column per action.
type Projection struct {
	store   *Store
	fields  []orm.Field[*models.Task]
	actions []string
}

// NewProjection binds m to s. m must use the same key as the store.
func NewProjection(s *Store, m *orm.Mapping[*models.Task], actions ...string) (*Projection, error) {
	if !m.SameKey(s.Mapping()) {
		return nil, errors.Wrapf(orm.ErrConfiguration, "projection key %q differs from store key %q",
			m.PrimaryKey().Property, s.Mapping().PrimaryKey().Property)
	}
	return &Projection{
		store:   s,
		fields:  m.Visible(),
		actions: append([]string(nil), actions...),
	}, nil
}

// Count returns the number of rows.
func (p *Projection) Count() int { return p.store.Count() }

// ColumnCount returns the visible fields plus the action columns.
func (p *Projection) ColumnCount() int { return len(p.fields) + len(p.actions) }

// FieldCount returns the number of data columns; action columns follow them.
func (p *Projection) FieldCount() int { return len(p.fields) }

// HeaderLabelAt returns the label of column c. Action columns and columns
// out of range have no label.
func (p *Projection) HeaderLabelAt(c int) string {
	if c < 0 || c >= len(p.fields) {
		return ""
	}
	return p.fields[c].Label
}

// ActionAt returns the action of column c, if c is an action column.
func (p *Projection) ActionAt(c int) (string, bool) {
	i := c - len(p.fields)
	if i < 0 || i >= len(p.actions) {
		return "", false
	}
	return p.actions[i], true
}

// RowAt renders the i-th row of the filtered view.
func (p *Projection) RowAt(i int) (Row, error) {
	t, err := p.store.GetByFilteredIndex(i)
	if err != nil {
		return Row{}, err
	}
	return p.render(t), nil
}

// Rows renders the whole filtered view from one snapshot.
func (p *Projection) Rows() []Row {
	tasks := p.store.Filtered()
	rows := make([]Row, len(tasks))
	for i, t := range tasks {
		rows[i] = p.render(t)
	}
	return rows
}

func (p *Projection) render(t *models.Task) Row {
	cells := make([]string, 0, p.ColumnCount())
	for _, f := range p.fields {
		cells = append(cells, f.Display(f.Get(t)))
	}
	cells = append(cells, p.actions...)
	return Row{ID: t.ID(), State: t.State(), Cells: cells}
}
