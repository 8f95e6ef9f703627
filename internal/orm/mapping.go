package orm

import (
	"errors"
	"fmt"
)

// ErrConfiguration reports a malformed mapping set.
var ErrConfiguration = errors.New("invalid mapping configuration")

// Args holds construct-only values keyed by property name.
type Args map[string]any

// Int64 returns the named argument as an int64, or 0 if missing.
func (a Args) Int64(property string) int64 {
	n, _ := AsInt64(a[property])
	return n
}

// String returns the named argument as a string, or "" if missing.
func (a Args) String(property string) string {
	s, _ := AsString(a[property])
	return s
}

// Mapping is a validated, ordered set of fields for entity type T.
type Mapping[T any] struct {
	fields     []Field[T]
	byProperty map[string]int
	byColumn   map[string]int
	key        int
}

// NewMapping validates fields and builds the lookup tables. It returns
// ErrConfiguration unless exactly one field is the primary key and every
// field is internally consistent.
func NewMapping[T any](fields ...Field[T]) (*Mapping[T], error) {
	m := &Mapping[T]{
		fields:     append([]Field[T](nil), fields...),
		byProperty: make(map[string]int, len(fields)),
		byColumn:   make(map[string]int, len(fields)),
		key:        -1,
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrConfiguration)
	}
	for i, f := range m.fields {
		if err := validateField(f); err != nil {
			return nil, err
		}
		if _, dup := m.byColumn[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrConfiguration, f.Name)
		}
		if _, dup := m.byProperty[f.Property]; dup {
			return nil, fmt.Errorf("%w: duplicate property %q", ErrConfiguration, f.Property)
		}
		m.byColumn[f.Name] = i
		m.byProperty[f.Property] = i

		if f.Constraints.Has(PrimaryKey) {
			if m.key >= 0 {
				return nil, fmt.Errorf("%w: more than one primary key (%s, %s)",
					ErrConfiguration, m.fields[m.key].Name, f.Name)
			}
			m.key = i
		}
		if f.Constraints.Has(AutoIncrement) && (!f.Constraints.Has(PrimaryKey) || f.Type != Integer) {
			return nil, fmt.Errorf("%w: autoincrement column %q must be an INTEGER primary key", ErrConfiguration, f.Name)
		}
	}
	if m.key < 0 {
		return nil, fmt.Errorf("%w: no primary key", ErrConfiguration)
	}
	if !m.fields[m.key].Readable() {
		return nil, fmt.Errorf("%w: primary key %q is not readable", ErrConfiguration, m.fields[m.key].Name)
	}
	return m, nil
}

// MustMapping is NewMapping for package-level mapping sets known to be valid.
func MustMapping[T any](fields ...Field[T]) *Mapping[T] {
	m, err := NewMapping(fields...)
	if err != nil {
		panic(err)
	}
	return m
}

func validateField[T any](f Field[T]) error {
	if !IsIdentifier(f.Name) {
		return fmt.Errorf("%w: bad column name %q", ErrConfiguration, f.Name)
	}
	if f.Property == "" {
		return fmt.Errorf("%w: column %q has no property", ErrConfiguration, f.Name)
	}
	switch f.Type {
	case Integer, Text, Real:
	default:
		return fmt.Errorf("%w: column %q has unknown type %q", ErrConfiguration, f.Name, f.Type)
	}
	switch f.Access {
	case ReadOnly, ConstructOnly:
		if f.Get == nil {
			return fmt.Errorf("%w: %s field %q needs a getter", ErrConfiguration, f.Access, f.Property)
		}
	case ReadWrite:
		if f.Get == nil || f.Set == nil {
			return fmt.Errorf("%w: %s field %q needs a getter and a setter", ErrConfiguration, f.Access, f.Property)
		}
	case WriteOnly:
		if f.Set == nil {
			return fmt.Errorf("%w: %s field %q needs a setter", ErrConfiguration, f.Access, f.Property)
		}
	default:
		return fmt.Errorf("%w: field %q has unknown access mode", ErrConfiguration, f.Property)
	}
	if f.Constraints.Has(ForeignKey) && f.References == "" {
		return fmt.Errorf("%w: foreign key %q has no target", ErrConfiguration, f.Name)
	}
	return nil
}

// Len returns the number of fields.
func (m *Mapping[T]) Len() int { return len(m.fields) }

// Field returns the i-th field by value.
func (m *Mapping[T]) Field(i int) Field[T] { return m.fields[i] }

// Fields returns a copy of the fields in declaration order.
func (m *Mapping[T]) Fields() []Field[T] {
	return append([]Field[T](nil), m.fields...)
}

// PrimaryKey returns the key field.
func (m *Mapping[T]) PrimaryKey() Field[T] { return m.fields[m.key] }

// ByProperty looks up a field by property name.
func (m *Mapping[T]) ByProperty(property string) (Field[T], bool) {
	i, ok := m.byProperty[property]
	if !ok {
		return Field[T]{}, false
	}
	return m.fields[i], true
}

// ByColumn looks up a field by column name.
func (m *Mapping[T]) ByColumn(column string) (Field[T], bool) {
	i, ok := m.byColumn[column]
	if !ok {
		return Field[T]{}, false
	}
	return m.fields[i], true
}

// SameKey reports whether other binds its primary key to the same property.
func (m *Mapping[T]) SameKey(other *Mapping[T]) bool {
	a, b := m.PrimaryKey(), other.PrimaryKey()
	return a.Property == b.Property && a.Name == b.Name
}

// Columns returns the schema descriptors in declaration order.
func (m *Mapping[T]) Columns() []Column {
	cols := make([]Column, len(m.fields))
	for i, f := range m.fields {
		cols[i] = f.Column
	}
	return cols
}

// ColumnNames returns the column names in declaration order.
func (m *Mapping[T]) ColumnNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Name
	}
	return names
}

// Visible returns the shown, labelled fields in declaration order.
func (m *Mapping[T]) Visible() []Field[T] {
	var out []Field[T]
	for _, f := range m.fields {
		if f.Visibility == Shown && f.Label != "" && f.Readable() {
			out = append(out, f)
		}
	}
	return out
}

// Build reconstructs an entity from a row. Construct-only values are
// collected and handed to construct first; assignable fields are then set
// through their setters. lookup returns a column's value and whether the
// row has that column.
func (m *Mapping[T]) Build(lookup func(column string) (any, bool), construct func(Args) (T, error)) (T, error) {
	args := Args{}
	for _, f := range m.fields {
		if f.Access != ConstructOnly {
			continue
		}
		if v, ok := lookup(f.Name); ok {
			args[f.Property] = v
		}
	}
	entity, err := construct(args)
	if err != nil {
		return entity, err
	}
	for _, f := range m.fields {
		if !f.Assignable() {
			continue
		}
		v, ok := lookup(f.Name)
		if !ok {
			continue
		}
		if err := f.Set(entity, v); err != nil {
			return entity, fmt.Errorf("set %s from column %s: %w", f.Property, f.Name, err)
		}
	}
	return entity, nil
}

// Values reads every readable field of entity, keyed by column name.
// The primary key is skipped when skipKey is set.
func (m *Mapping[T]) Values(entity T, skipKey bool) ([]string, []any) {
	var cols []string
	var vals []any
	for i, f := range m.fields {
		if !f.Readable() || (skipKey && i == m.key) {
			continue
		}
		cols = append(cols, f.Name)
		vals = append(vals, f.Get(entity))
	}
	return cols, vals
}
