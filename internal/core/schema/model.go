package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/baseorm/baseorm/internal/core/errs"
)

// DefaultAlias is the connection alias models use unless told otherwise.
const DefaultAlias = "default"

// Model is an explicit declaration of a table and its fields.
type Model struct {
	Name   string
	Table  string
	Alias  string
	Fields []Field
}

// NewModel declares a model. The table name defaults to the pluralized
// snake_case model name. A model without a primary key receives an
// auto-incrementing integer id.
func NewModel(name string, fields ...Field) *Model {
	m := &Model{
		Name:   name,
		Table:  TableName(name),
		Alias:  DefaultAlias,
		Fields: append([]Field(nil), fields...),
	}
	if _, ok := m.PrimaryKey(); !ok {
		id := IntegerField("id", PrimaryKey(), AutoIncrement())
		m.Fields = append([]Field{id}, m.Fields...)
	}
	return m
}

// WithTable overrides the table name.
func (m *Model) WithTable(table string) *Model {
	m.Table = table
	return m
}

// WithAlias binds the model to a connection alias.
func (m *Model) WithAlias(alias string) *Model {
	m.Alias = alias
	return m
}

// Field finds a field by name or column name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name || f.ColumnName() == name {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKey returns the primary key field.
func (m *Model) PrimaryKey() (Field, bool) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKeyColumn is the primary key column, "id" when none is declared.
func (m *Model) PrimaryKeyColumn() string {
	if pk, ok := m.PrimaryKey(); ok {
		return pk.ColumnName()
	}
	return "id"
}

// Validate checks the declaration for mistakes the engine would only
// report later.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model without a name")
	}
	if m.Table == "" {
		return fmt.Errorf("model %s: empty table name", m.Name)
	}
	seen := make(map[string]bool, len(m.Fields))
	pks := 0
	for _, f := range m.Fields {
		col := f.ColumnName()
		if col == "" {
			return fmt.Errorf("model %s: field without a name", m.Name)
		}
		if seen[col] {
			return fmt.Errorf("model %s: duplicate column %q", m.Name, col)
		}
		seen[col] = true
		if f.PrimaryKey {
			pks++
		}
		if f.Type == ForeignKey && f.References == "" {
			return fmt.Errorf("model %s: foreign key %q has no referenced table", m.Name, f.Name)
		}
	}
	if pks > 1 {
		return fmt.Errorf("model %s: %d primary keys declared", m.Name, pks)
	}
	return nil
}

var (
	camelBoundary = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	lowerUpper    = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SnakeCase converts CamelCase to snake_case.
func SnakeCase(name string) string {
	s := camelBoundary.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(lowerUpper.ReplaceAllString(s, "${1}_${2}"))
}

// Pluralize applies the naive English plural used for table names.
func Pluralize(word string) string {
	switch {
	case strings.HasSuffix(word, "y"):
		return strings.TrimSuffix(word, "y") + "ies"
	case strings.HasSuffix(word, "s"):
		return word + "es"
	default:
		return word + "s"
	}
}

// TableName derives the default table name of a model.
func TableName(model string) string {
	return Pluralize(SnakeCase(model))
}

// Lookup returns the value stored under the field's name or column.
func (m *Model) Lookup(values map[string]any, f Field) (any, bool) {
	if v, ok := values[f.Name]; ok {
		return v, true
	}
	v, ok := values[f.ColumnName()]
	return v, ok
}

// CheckValues validates values against the declared fields. When insert
// is set, required fields that are absent are reported too.
func (m *Model) CheckValues(values map[string]any, insert bool) error {
	var problems []string
	for _, f := range m.Fields {
		v, ok := m.Lookup(values, f)
		if !ok {
			if insert && f.NotNull && !f.PrimaryKey && !f.HasDefault && !f.Generated() {
				problems = append(problems, f.Name+" is required")
			}
			continue
		}
		if err := f.Validate(v); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return errs.New(errs.ErrValidation, "validate", "%s: %s", m.Name, strings.Join(problems, "; "))
	}
	return nil
}
