// Package orm describes how entity properties map onto table columns.
//
// A Mapping is an ordered, validated set of Field descriptors for one entity
// type. Each Field carries typed accessor closures, so binding a column to a
// property is resolved once when the Mapping is built rather than looked up
// by name on every access.
package orm

import (
	"strings"
)

// ColumnType is the SQLite storage type of a column.
type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Text    ColumnType = "TEXT"
	Real    ColumnType = "REAL"
)

// Constraint is a set of column constraints.
type Constraint uint8

const (
	PrimaryKey Constraint = 1 << iota
	ForeignKey
	Unique
	NotNull
	// AutoIncrement keeps an INTEGER primary key from ever reusing the id of
	// a deleted row.
	AutoIncrement
)

// None is the empty constraint set.
const None Constraint = 0

// Has reports whether every constraint in o is set on c.
func (c Constraint) Has(o Constraint) bool {
	return c&o == o && o != None
}

// Access controls how a property participates in loading and persisting.
type Access uint8

const (
	// ReadOnly properties are read from the entity and persisted, but never
	// assigned back on load.
	ReadOnly Access = 1
	// WriteOnly properties are assigned on load and never read for persistence.
	WriteOnly Access = 2
	// ReadWrite properties are persisted and assigned on load.
	ReadWrite = ReadOnly | WriteOnly
	// ConstructOnly properties are passed to the constructor on load.
	ConstructOnly Access = 4
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	case ConstructOnly:
		return "construct-only"
	}
	return "unknown"
}

// Visibility controls whether a field appears in projections.
type Visibility uint8

const (
	Hidden Visibility = iota
	Shown
)

// Column is the schema half of a field: what the table needs to know.
type Column struct {
	Name        string
	Type        ColumnType
	Constraints Constraint
	// References names the target of a ForeignKey constraint, e.g. "Project(id)".
	References string
}

// Definition renders the column as it appears inside CREATE TABLE.
func (c Column) Definition() string {
	parts := []string{c.Name, string(c.Type)}
	if c.Constraints.Has(PrimaryKey) {
		parts = append(parts, "PRIMARY KEY")
		if c.Constraints.Has(AutoIncrement) {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if c.Constraints.Has(Unique) {
		parts = append(parts, "UNIQUE")
	}
	if c.Constraints.Has(NotNull) {
		parts = append(parts, "NOT NULL")
	}
	if c.Constraints.Has(ForeignKey) {
		parts = append(parts, "REFERENCES "+c.References)
	}
	return strings.Join(parts, " ")
}

// Field binds one Column to one property of T.
type Field[T any] struct {
	Column

	Property   string
	Access     Access
	Visibility Visibility
	// Label is the projection header. Fields without a label are not shown.
	Label string
	// Format renders a value for display. Nil means fmt's default formatting.
	Format func(v any) string

	Get func(T) any
	Set func(T, any) error
}

// Readable reports whether the field's value can be read from an entity.
func (f Field[T]) Readable() bool {
	return f.Access != WriteOnly && f.Get != nil
}

// Assignable reports whether the field is assigned through Set on load.
func (f Field[T]) Assignable() bool {
	return f.Access&WriteOnly != 0 && f.Set != nil
}

// Display formats v for presentation.
func (f Field[T]) Display(v any) string {
	if f.Format != nil {
		return f.Format(v)
	}
	return FormatValue(v)
}
