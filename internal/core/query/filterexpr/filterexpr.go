// Package filterexpr parses textual filters such as `age__gte=18` or
// `status__in=[draft, "in review"]` into query conditions.
package filterexpr

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/builder"
	"github.com/baseorm/baseorm/internal/core/query/domain"
)

// Lexer tokenizes filter expressions. Words are classified after parsing
// so that dates and negative numbers stay single tokens.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Word", Pattern: `[^\s,\[\]="]+`},
	{Name: "Punct", Pattern: `[=\[\],]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Expression is `key=value`.
type Expression struct {
	Pos   lexer.Position
	Key   string `@Word "="`
	Value *Value `@@`
}

// Value is a list, a quoted string or a bare word.
type Value struct {
	Pos    lexer.Position
	List   *List   `  @@`
	String *string `| @String`
	Word   *string `| @Word`
}

// List is `[v, ...]`.
type List struct {
	Open  string   `@"["`
	Items []*Value `( @@ ( "," @@ )* )? "]"`
}

var parser = participle.MustBuild[Expression](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse parses one expression into a condition.
func Parse(expr string) (domain.Condition, error) {
	e, err := parser.ParseString("", expr)
	if err != nil {
		return domain.Condition{}, errs.New(errs.ErrQuery, "filter", "invalid filter %q: %v", expr, err)
	}
	return builder.Where(e.Key, e.Value.Go()), nil
}

// ParseAll parses every expression, stopping at the first error.
func ParseAll(exprs []string) ([]domain.Condition, error) {
	out := make([]domain.Condition, 0, len(exprs))
	for _, expr := range exprs {
		c, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Go converts the value into its Go form. Bare words become nil, bools,
// int64 or float64 when they read as such, and strings otherwise.
func (v *Value) Go() any {
	switch {
	case v.List != nil:
		items := make([]any, len(v.List.Items))
		for i, item := range v.List.Items {
			items[i] = item.Go()
		}
		return items
	case v.String != nil:
		return *v.String
	case v.Word != nil:
		return word(*v.Word)
	}
	return nil
}

func word(w string) any {
	switch strings.ToLower(w) {
	case "null", "none", "nil":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if !strings.ContainsAny(w, "0123456789") {
		return w
	}
	if n, err := strconv.ParseInt(w, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(w, 64); err == nil {
		return f
	}
	return w
}
