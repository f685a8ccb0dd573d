// Package introspector reads the live SQLite catalog.
package introspector

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/baseorm/baseorm/internal/core/migration/domain"
	"github.com/baseorm/baseorm/internal/core/migration/history"
	"github.com/baseorm/baseorm/internal/core/query/compiler"
	qdomain "github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Queryer runs a query and returns its rows.
type Queryer interface {
	Query(ctx context.Context, query string, args ...any) ([]qdomain.Row, error)
}

// The migration ledger and SQLite's own tables are never reported.
const listTables = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name <> '` + history.Table + `' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
ORDER BY name`

// Introspector reads tables and columns through a Queryer.
type Introspector struct {
	db Queryer
}

// New creates an introspector.
func New(db Queryer) *Introspector {
	return &Introspector{db: db}
}

// ListTables lists user tables in name order.
func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, asString(r["name"]))
	}
	return out, nil
}

// Inspect reads every user table.
func (i *Introspector) Inspect(ctx context.Context) (*domain.Catalog, error) {
	names, err := i.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	catalog := &domain.Catalog{Tables: make([]domain.Table, 0, len(names))}
	for _, name := range names {
		t, err := i.Table(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("inspect table %s: %w", name, err)
		}
		catalog.Tables = append(catalog.Tables, *t)
	}
	return catalog, nil
}

// Table reads the columns and foreign keys of one table.
func (i *Introspector) Table(ctx context.Context, name string) (*domain.Table, error) {
	rows, err := i.db.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", compiler.Quote(name)))
	if err != nil {
		return nil, err
	}
	t := &domain.Table{Name: name, Columns: make([]domain.Column, 0, len(rows))}
	for _, r := range rows {
		col := domain.Column{
			Name:       asString(r["name"]),
			Type:       asString(r["type"]),
			NotNull:    asInt(r["notnull"]) != 0,
			PrimaryKey: asInt(r["pk"]) > 0,
		}
		if v := r["dflt_value"]; v != nil {
			s := asString(v)
			col.Default = &s
		}
		t.Columns = append(t.Columns, col)
	}

	fks, err := i.db.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", compiler.Quote(name)))
	if err != nil {
		return nil, err
	}
	for _, r := range fks {
		t.ForeignKeys = append(t.ForeignKeys, domain.ForeignKey{
			Column:   asString(r["from"]),
			Table:    asString(r["table"]),
			To:       asString(r["to"]),
			OnDelete: asString(r["on_delete"]),
		})
	}
	return t, nil
}

// Models turns a catalog into model declarations.
func Models(c *domain.Catalog) []*schema.Model {
	out := make([]*schema.Model, 0, len(c.Tables))
	for _, t := range c.Tables {
		m := &schema.Model{
			Name:   ModelName(t.Name),
			Table:  t.Name,
			Alias:  schema.DefaultAlias,
			Fields: make([]schema.Field, 0, len(t.Columns)),
		}
		for _, col := range t.Columns {
			f := schema.InferField(col.Name, col.Type, col.NotNull, col.PrimaryKey, col.Default)
			if fk, ok := t.ForeignKey(col.Name); ok {
				f.Type = schema.ForeignKey
				f.References = fk.Table
				f.OnDelete = fk.OnDelete
			}
			m.Fields = append(m.Fields, f)
		}
		out = append(out, m)
	}
	return out
}

// ModelName derives a CamelCase model name from a table name.
func ModelName(table string) string {
	var b strings.Builder
	for _, part := range strings.Split(table, "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case bool:
		if t {
			return 1
		}
	}
	return 0
}
