// Package compiler turns accumulated query state into parameterized
// SQLite statements. Compilation never fails; engine errors surface when
// the statement runs.
package compiler

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/query/lookup"
)

// Statement is SQL text plus its positional parameters.
type Statement struct {
	SQL    string
	Params []any
}

// Assignment is one column = value pair of an UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// Quote quotes an identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Select builds the SELECT for s.
func Select(s domain.State) Statement {
	projection := "*"
	if len(s.Projection) > 0 {
		cols := make([]string, len(s.Projection))
		for i, f := range s.Projection {
			cols[i] = Quote(f)
		}
		projection = strings.Join(cols, ", ")
	}
	return buildSelect(s, projection, true)
}

// Exists builds a SELECT of a constant over the same window, capped at one
// row. A smaller limit, such as 0, is kept.
func Exists(s domain.State) Statement {
	if s.Limit == nil || *s.Limit > 1 || *s.Limit < 0 {
		one := 1
		s.Limit = &one
	}
	return buildSelect(s, "1", false)
}

// Count builds SELECT COUNT(*) over the filtered table. Ordering and
// slicing are ignored.
func Count(s domain.State) Statement {
	parts := []string{"SELECT COUNT(*) FROM " + Quote(s.Table)}
	where, params := Where(s)
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}
	return Statement{SQL: strings.Join(parts, " "), Params: params}
}

// Update builds an UPDATE. SET parameters precede WHERE parameters.
func Update(s domain.State, set []Assignment) Statement {
	var params []any
	cols := make([]string, len(set))
	for i, a := range set {
		cols[i] = Quote(a.Column) + " = ?"
		params = append(params, a.Value)
	}

	parts := []string{"UPDATE " + Quote(s.Table), "SET " + strings.Join(cols, ", ")}
	where, whereParams := Where(s)
	if where != "" {
		parts = append(parts, "WHERE "+where)
		params = append(params, whereParams...)
	}
	return Statement{SQL: strings.Join(parts, " "), Params: params}
}

// Delete builds a DELETE. Callers are expected to refuse unfiltered state.
func Delete(s domain.State) Statement {
	parts := []string{"DELETE FROM " + Quote(s.Table)}
	where, params := Where(s)
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}
	return Statement{SQL: strings.Join(parts, " "), Params: params}
}

// Insert builds a single-row INSERT. With no columns it inserts defaults.
func Insert(table string, columns []string, values []any) Statement {
	if len(columns) == 0 {
		return Statement{SQL: "INSERT INTO " + Quote(table) + " DEFAULT VALUES"}
	}
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Quote(c)
		marks[i] = "?"
	}
	return Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			Quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")),
		Params: append([]any(nil), values...),
	}
}

// Where renders the combined filter and exclude conditions joined with
// AND. Filter parameters precede exclude parameters.
func Where(s domain.State) (string, []any) {
	var conds []string
	var params []any
	for _, c := range s.Filters {
		sql, p := include(c)
		conds = append(conds, sql)
		params = append(params, p...)
	}
	for _, c := range s.Excludes {
		sql, p := exclude(c)
		conds = append(conds, sql)
		params = append(params, p...)
	}
	return strings.Join(conds, " AND "), params
}

func buildSelect(s domain.State, projection string, ordered bool) Statement {
	head := "SELECT "
	if s.Distinct {
		head += "DISTINCT "
	}
	parts := []string{head + projection, "FROM " + Quote(s.Table)}

	where, params := Where(s)
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}

	if ordered && len(s.Ordering) > 0 {
		terms := make([]string, len(s.Ordering))
		for i, o := range s.Ordering {
			terms[i] = Quote(o.Field) + " " + string(o.Direction)
		}
		parts = append(parts, "ORDER BY "+strings.Join(terms, ", "))
	}

	switch {
	case s.Limit != nil:
		parts = append(parts, "LIMIT "+strconv.Itoa(*s.Limit))
	case s.Offset != nil:
		// SQLite accepts OFFSET only after a LIMIT; -1 means unbounded.
		parts = append(parts, "LIMIT -1")
	}
	if s.Offset != nil {
		parts = append(parts, "OFFSET "+strconv.Itoa(*s.Offset))
	}

	return Statement{SQL: strings.Join(parts, " "), Params: params}
}

func include(c domain.Condition) (string, []any) {
	field := Quote(c.Field)
	switch c.Operator {
	case lookup.IsNull:
		if Truthy(c.Value) {
			return field + " IS NULL", nil
		}
		return field + " IS NOT NULL", nil
	case lookup.In:
		values := Elements(c.Value)
		return field + " IN (" + placeholders(len(values)) + ")", values
	case lookup.Range:
		return field + " BETWEEN ? AND ?", bounds(c.Value)
	default:
		return field + " " + c.Operator.SQL() + " ?", []any{lookup.FormatValue(c.Operator, c.Value)}
	}
}

func exclude(c domain.Condition) (string, []any) {
	field := Quote(c.Field)
	switch c.Operator {
	case lookup.IsNull:
		if Truthy(c.Value) {
			return field + " IS NOT NULL", nil
		}
		return field + " IS NULL", nil
	case lookup.In:
		values := Elements(c.Value)
		return field + " NOT IN (" + placeholders(len(values)) + ")", values
	default:
		sql, params := include(c)
		return "NOT (" + sql + ")", params
	}
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// bounds returns exactly two parameters for BETWEEN. Missing bounds bind
// NULL and extra elements are ignored.
func bounds(v any) []any {
	values := Elements(v)
	out := []any{nil, nil}
	copy(out, values)
	return out
}

// Elements expands slices and arrays into their elements. Any other value,
// including strings and byte slices, is a single element.
func Elements(v any) []any {
	if v == nil {
		return nil
	}
	if values, ok := v.([]any); ok {
		return values
	}
	if _, ok := v.([]byte); ok {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	default:
		return []any{v}
	}
}

// Truthy reports whether v counts as true for an isnull lookup: booleans
// by value, nil as false, anything else by being non-zero.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	default:
		return !rv.IsZero()
	}
}
