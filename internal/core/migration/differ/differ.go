// Package differ compares declared models with the live catalog.
package differ

import (
	"github.com/baseorm/baseorm/internal/core/migration/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Detect returns the operations that bring the catalog up to the
// declared models: a CreateTable per missing table and an AddColumn per
// missing column, in model and field order. Tables and columns that are
// only present in the catalog are left alone.
func Detect(models []*schema.Model, catalog *domain.Catalog) []domain.Operation {
	var ops []domain.Operation
	for _, m := range models {
		table, ok := catalog.Table(m.Table)
		if !ok {
			ops = append(ops, createTable(m))
			continue
		}
		for _, f := range m.Fields {
			if table.HasColumn(f.ColumnName()) {
				continue
			}
			ops = append(ops, &domain.AddColumn{
				Table:      m.Table,
				Column:     f.ColumnName(),
				Definition: f.Definition(),
			})
		}
	}
	return ops
}

func createTable(m *schema.Model) *domain.CreateTable {
	cols := make([]domain.ColumnDef, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = domain.ColumnDef{Name: f.ColumnName(), Definition: f.Definition()}
	}
	return &domain.CreateTable{Table: m.Table, Columns: cols}
}
