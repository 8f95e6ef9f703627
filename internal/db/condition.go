package db

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/tgienger/tplan/internal/orm"
)

type term struct {
	column string
	op     string
	value  any
}

// Condition is a conjunction of equality/range predicates on column values.
// The zero Condition is empty: it matches every row for reads and is refused
// by Update, which needs AllRows to touch the whole table.
type Condition struct {
	terms []term
	all   bool
}

// Eq matches rows where column = v.
func Eq(column string, v any) Condition {
	return Condition{terms: []term{{column, "=", v}}}
}

// Gte matches rows where column >= v.
func Gte(column string, v any) Condition {
	return Condition{terms: []term{{column, ">=", v}}}
}

// Lte matches rows where column <= v.
func Lte(column string, v any) Condition {
	return Condition{terms: []term{{column, "<=", v}}}
}

// Between matches lo <= column <= hi.
func Between(column string, lo, hi any) Condition {
	return And(Gte(column, lo), Lte(column, hi))
}

// And joins conditions.
func And(conds ...Condition) Condition {
	var c Condition
	for _, other := range conds {
		c.terms = append(c.terms, other.terms...)
		c.all = c.all || other.all
	}
	return c
}

// AllRows explicitly selects every row. Required for bulk updates.
func AllRows() Condition {
	return Condition{all: true}
}

// IsEmpty reports whether the condition has no predicates.
func (c Condition) IsEmpty() bool { return len(c.terms) == 0 }

// where renders the WHERE clause (with leading space) and its arguments.
func (c Condition) where() (string, []any, error) {
	if c.IsEmpty() {
		return "", nil, nil
	}
	parts := make([]string, len(c.terms))
	args := make([]any, len(c.terms))
	for i, t := range c.terms {
		if !orm.IsIdentifier(t.column) {
			return "", nil, errors.Wrapf(ErrInvalidArgument, "bad column name %q", t.column)
		}
		parts[i] = t.column + " " + t.op + " ?"
		args[i] = t.value
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}
