// Package lookup parses filter keys of the form field__operator and maps
// operators onto SQL comparison fragments.
package lookup

import (
	"fmt"
	"strings"
)

// Separator splits a lookup key into field path and operator.
const Separator = "__"

// Operator names a comparison.
type Operator string

const (
	Exact       Operator = "exact"
	Gt          Operator = "gt"
	Gte         Operator = "gte"
	Lt          Operator = "lt"
	Lte         Operator = "lte"
	Ne          Operator = "ne"
	In          Operator = "in"
	Contains    Operator = "contains"
	IContains   Operator = "icontains"
	StartsWith  Operator = "startswith"
	IStartsWith Operator = "istartswith"
	EndsWith    Operator = "endswith"
	IEndsWith   Operator = "iendswith"
	IsNull      Operator = "isnull"
	Range       Operator = "range"
)

var sqlOperators = map[Operator]string{
	Exact:       "=",
	Gt:          ">",
	Gte:         ">=",
	Lt:          "<",
	Lte:         "<=",
	Ne:          "!=",
	In:          "IN",
	Contains:    "LIKE",
	IContains:   "LIKE",
	StartsWith:  "LIKE",
	IStartsWith: "LIKE",
	EndsWith:    "LIKE",
	IEndsWith:   "LIKE",
	IsNull:      "IS NULL",
	Range:       "BETWEEN",
}

// Operators lists the known operators in a stable order.
func Operators() []Operator {
	return []Operator{
		Exact, Gt, Gte, Lt, Lte, Ne, In,
		Contains, IContains, StartsWith, IStartsWith, EndsWith, IEndsWith,
		IsNull, Range,
	}
}

// Known reports whether op is in the operator table.
func (op Operator) Known() bool {
	_, ok := sqlOperators[op]
	return ok
}

// SQL returns the SQL fragment for op. Operators outside the table fall
// back to equality.
func (op Operator) SQL() string {
	if s, ok := sqlOperators[op]; ok {
		return s
	}
	return "="
}

// Lookup is a parsed filter key.
type Lookup struct {
	Field    string
	Operator Operator
}

// Parse splits key on the separator. A key without a separator is an
// exact match on that field; otherwise the last segment is the operator
// and the remaining segments form the field path.
func Parse(key string) Lookup {
	parts := strings.Split(key, Separator)
	if len(parts) == 1 {
		return Lookup{Field: key, Operator: Exact}
	}
	last := len(parts) - 1
	return Lookup{
		Field:    strings.Join(parts[:last], Separator),
		Operator: Operator(parts[last]),
	}
}

// String renders the lookup back to its key form.
func (l Lookup) String() string {
	if l.Operator == Exact {
		return l.Field
	}
	return l.Field + Separator + string(l.Operator)
}

// FormatValue wraps pattern values in LIKE wildcards. Wildcard characters
// already present in v are not escaped.
func FormatValue(op Operator, v any) any {
	switch op {
	case Contains, IContains:
		return fmt.Sprintf("%%%v%%", v)
	case StartsWith, IStartsWith:
		return fmt.Sprintf("%v%%", v)
	case EndsWith, IEndsWith:
		return fmt.Sprintf("%%%v", v)
	default:
		return v
	}
}
