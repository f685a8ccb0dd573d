// Package domain contains the migration entities: operations and the
// migrations that group them.
package domain

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/compiler"
)

// Execer runs a statement against the database.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Kind identifies an operation variant.
type Kind string

const (
	// KindCreateTable creates a table.
	KindCreateTable Kind = "create_table"
	// KindDropTable drops a table.
	KindDropTable Kind = "drop_table"
	// KindAddColumn adds a column to an existing table.
	KindAddColumn Kind = "add_column"
)

// Operation is one schema change within a migration.
type Operation interface {
	// Kind returns the variant.
	Kind() Kind

	// Describe returns a human-readable description.
	Describe() string

	// SQL returns the statement Apply executes.
	SQL() string

	// Apply executes the change.
	Apply(ctx context.Context, ex Execer) error

	// Reverse undoes the change. One-way operations fail with a
	// migration error.
	Reverse(ctx context.Context, ex Execer) error

	// CanReverse reports whether Reverse can succeed.
	CanReverse() bool
}

// ColumnDef is a column name with its definition, the part of a column
// declaration after the name.
type ColumnDef struct {
	Name       string `yaml:"name"`
	Definition string `yaml:"definition"`
}

// CreateTable creates a table with the given columns.
type CreateTable struct {
	Table   string
	Columns []ColumnDef
}

func (c *CreateTable) Kind() Kind { return KindCreateTable }

func (c *CreateTable) Describe() string {
	return fmt.Sprintf("Create table %s", c.Table)
}

func (c *CreateTable) SQL() string {
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = compiler.Quote(col.Name) + " " + col.Definition
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", compiler.Quote(c.Table), strings.Join(cols, ", "))
}

func (c *CreateTable) Apply(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, c.SQL())
	return err
}

func (c *CreateTable) Reverse(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, dropTableSQL(c.Table))
	return err
}

func (c *CreateTable) CanReverse() bool { return true }

// DropTable drops a table. It cannot be reversed: the dropped structure
// and rows are not retained.
type DropTable struct {
	Table string
}

func (d *DropTable) Kind() Kind { return KindDropTable }

func (d *DropTable) Describe() string {
	return fmt.Sprintf("Drop table %s", d.Table)
}

func (d *DropTable) SQL() string { return dropTableSQL(d.Table) }

func (d *DropTable) Apply(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, d.SQL())
	return err
}

func (d *DropTable) Reverse(context.Context, Execer) error {
	return errs.New(errs.ErrMigration, "reverse", "cannot reverse drop of table %s without a schema backup", d.Table)
}

func (d *DropTable) CanReverse() bool { return false }

// AddColumn adds a column to an existing table. It cannot be reversed.
type AddColumn struct {
	Table      string
	Column     string
	Definition string
}

func (a *AddColumn) Kind() Kind { return KindAddColumn }

func (a *AddColumn) Describe() string {
	return fmt.Sprintf("Add column %s to %s", a.Column, a.Table)
}

func (a *AddColumn) SQL() string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", compiler.Quote(a.Table), compiler.Quote(a.Column), a.Definition)
}

func (a *AddColumn) Apply(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, a.SQL())
	return err
}

func (a *AddColumn) Reverse(context.Context, Execer) error {
	return errs.New(errs.ErrMigration, "reverse", "cannot reverse adding column %s to %s", a.Column, a.Table)
}

func (a *AddColumn) CanReverse() bool { return false }

func dropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + compiler.Quote(table)
}

var (
	_ Operation = (*CreateTable)(nil)
	_ Operation = (*DropTable)(nil)
	_ Operation = (*AddColumn)(nil)
)
