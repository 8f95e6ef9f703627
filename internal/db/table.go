package db

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/tgienger/tplan/internal/orm"
)

// Table errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSchemaMismatch means a query asked for columns the table lacks.
	// It is distinct from a query that matches no rows.
	ErrSchemaMismatch = errors.New("incompatible schema")
)

// Value is one column of a result row.
type Value struct {
	Column string
	Value  any
}

// Row is an ordered sequence of column/value pairs.
type Row []Value

// Get returns the value of column and whether the row has it.
func (r Row) Get(column string) (any, bool) {
	for _, v := range r {
		if v.Column == column {
			return v.Value, true
		}
	}
	return nil, false
}

// Table is a CRUD gateway over a single named table.
type Table struct {
	db   *DB
	name string
}

// Table returns the gateway for the named table. The table itself is
// created by EnsureSchema.
func (db *DB) Table(name string) (*Table, error) {
	if !orm.IsIdentifier(name) {
		return nil, errors.Wrapf(ErrInvalidArgument, "bad table name %q", name)
	}
	return &Table{db: db, name: name}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// EnsureSchema creates the table from the column descriptors if it does not
// exist. Calling it again with the same columns changes nothing.
func (t *Table) EnsureSchema(columns []orm.Column) error {
	if len(columns) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no columns")
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		if !orm.IsIdentifier(c.Name) {
			return errors.Wrapf(ErrInvalidArgument, "bad column name %q", c.Name)
		}
		defs[i] = c.Definition()
	}
	query := "CREATE TABLE IF NOT EXISTS " + t.name + " (" + strings.Join(defs, ", ") + ")"
	_, err := t.db.Exec(query)
	return errors.Wrapf(err, "create table %s", t.name)
}

// Columns returns the table's actual column names in schema order.
func (t *Table) Columns() ([]string, error) {
	rows, err := t.db.Query("SELECT name FROM pragma_table_info(?)", t.name)
	if err != nil {
		return nil, errors.Wrapf(err, "table info %s", t.name)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Insert appends one row. columns and values are parallel and must have the
// same, non-zero length. Returns the generated row id.
func (t *Table) Insert(columns []string, values []any) (int64, error) {
	if len(columns) == 0 || len(values) == 0 || len(columns) != len(values) {
		return 0, errors.Wrapf(ErrInvalidArgument, "insert into %s: %d columns, %d values",
			t.name, len(columns), len(values))
	}
	for _, c := range columns {
		if !orm.IsIdentifier(c) {
			return 0, errors.Wrapf(ErrInvalidArgument, "bad column name %q", c)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	query := "INSERT INTO " + t.name + " (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")"
	result, err := t.db.Exec(query, values...)
	if err != nil {
		return 0, errors.Wrapf(err, "insert into %s", t.name)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return id, nil
}

// Update sets the given columns on every row matching cond. values must not
// be empty. An empty cond is refused; pass AllRows to update the whole table.
func (t *Table) Update(values map[string]any, cond Condition) error {
	if len(values) == 0 {
		return errors.Wrapf(ErrInvalidArgument, "update %s: no values", t.name)
	}
	if cond.IsEmpty() && !cond.all {
		return errors.Wrapf(ErrInvalidArgument, "update %s: empty condition, use AllRows for a bulk update", t.name)
	}

	// Sorted for a stable statement text.
	columns := make([]string, 0, len(values))
	for c := range values {
		if !orm.IsIdentifier(c) {
			return errors.Wrapf(ErrInvalidArgument, "bad column name %q", c)
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
		args = append(args, values[c])
	}

	where, whereArgs, err := cond.where()
	if err != nil {
		return err
	}
	query := "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + where
	_, err = t.db.Exec(query, append(args, whereArgs...)...)
	return errors.Wrapf(err, "update %s", t.name)
}

// DeleteByID removes the row whose key column equals id. Deleting an absent
// row is not an error.
func (t *Table) DeleteByID(keyColumn string, id any) error {
	where, args, err := Eq(keyColumn, id).where()
	if err != nil {
		return err
	}
	_, err = t.db.Exec("DELETE FROM "+t.name+where, args...)
	return errors.Wrapf(err, "delete from %s", t.name)
}

// QueryAll returns every row matching cond (every row for an empty cond),
// restricted to the requested columns in the requested order. An empty
// request returns all columns. If any requested column does not exist,
// QueryAll returns ErrSchemaMismatch.
func (t *Table) QueryAll(cond Condition, requested []string) ([]Row, error) {
	where, args, err := cond.where()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.Query("SELECT * FROM "+t.name+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", t.name)
	}
	defer rows.Close()

	actual, err := rows.Columns()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	index := make(map[string]int, len(actual))
	for i, c := range actual {
		index[c] = i
	}
	if len(requested) == 0 {
		requested = actual
	}
	for _, c := range requested {
		if _, ok := index[c]; !ok {
			return nil, errors.Wrapf(ErrSchemaMismatch, "table %s has no column %q", t.name, c)
		}
	}

	result := []Row{}
	for rows.Next() {
		raw := make([]any, len(actual))
		ptrs := make([]any, len(actual))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.WithStack(err)
		}
		row := make(Row, len(requested))
		for i, c := range requested {
			row[i] = Value{Column: c, Value: raw[index[c]]}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return result, nil
}
