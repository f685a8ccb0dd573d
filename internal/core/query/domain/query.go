// Package domain holds the accumulated state of a lazy query.
package domain

import (
	"strings"

	"github.com/baseorm/baseorm/internal/core/query/lookup"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Condition is a parsed filter or exclude entry.
type Condition struct {
	Field    string
	Operator lookup.Operator
	Value    any
}

// NewCondition parses key into a condition on value.
func NewCondition(key string, value any) Condition {
	l := lookup.Parse(key)
	return Condition{Field: l.Field, Operator: l.Operator, Value: value}
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy is one ordering term.
type OrderBy struct {
	Field     string
	Direction Direction
}

// ParseOrdering reads "field" as ascending and "-field" as descending.
func ParseOrdering(term string) OrderBy {
	if name, ok := strings.CutPrefix(term, "-"); ok {
		return OrderBy{Field: name, Direction: Desc}
	}
	return OrderBy{Field: term, Direction: Asc}
}

// Flip returns the term with the opposite direction.
func (o OrderBy) Flip() OrderBy {
	if o.Direction == Desc {
		return OrderBy{Field: o.Field, Direction: Asc}
	}
	return OrderBy{Field: o.Field, Direction: Desc}
}

// State is everything a query set has accumulated. A nil Projection
// selects full records; Limit and Offset are unset when nil.
type State struct {
	Table      string
	Filters    []Condition
	Excludes   []Condition
	Ordering   []OrderBy
	Limit      *int
	Offset     *int
	Distinct   bool
	Projection []string
}

// Clone returns a deep copy so that the copy can be extended without
// touching the original.
func (s State) Clone() State {
	out := s
	out.Filters = append([]Condition(nil), s.Filters...)
	out.Excludes = append([]Condition(nil), s.Excludes...)
	out.Ordering = append([]OrderBy(nil), s.Ordering...)
	if s.Projection != nil {
		out.Projection = append([]string{}, s.Projection...)
	}
	if s.Limit != nil {
		n := *s.Limit
		out.Limit = &n
	}
	if s.Offset != nil {
		n := *s.Offset
		out.Offset = &n
	}
	return out
}

// Filtered reports whether any filter or exclude is present.
func (s State) Filtered() bool {
	return len(s.Filters) > 0 || len(s.Excludes) > 0
}
