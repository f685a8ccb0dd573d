package domain_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/migration/domain"
)

type recorder struct {
	statements []string
	failOn     string
}

func (r *recorder) Exec(_ context.Context, query string, _ ...any) (sql.Result, error) {
	if r.failOn != "" && query == r.failOn {
		return nil, errors.New("engine failure")
	}
	r.statements = append(r.statements, query)
	return driver.RowsAffected(0), nil
}

func TestOperationSQL(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}

	create := &domain.CreateTable{Table: "posts", Columns: []domain.ColumnDef{
		{Name: "id", Definition: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "title", Definition: "VARCHAR(200) NOT NULL"},
	}}
	require.NoError(t, create.Apply(ctx, rec))
	require.NoError(t, create.Reverse(ctx, rec))
	require.NoError(t, (&domain.DropTable{Table: "old"}).Apply(ctx, rec))
	require.NoError(t, (&domain.AddColumn{Table: "authors", Column: "views", Definition: "INTEGER DEFAULT 0"}).Apply(ctx, rec))

	assert.Equal(t, []string{
		`CREATE TABLE IF NOT EXISTS "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" VARCHAR(200) NOT NULL)`,
		`DROP TABLE IF EXISTS "posts"`,
		`DROP TABLE IF EXISTS "old"`,
		`ALTER TABLE "authors" ADD COLUMN "views" INTEGER DEFAULT 0`,
	}, rec.statements)
}

func TestOneWayOperations(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}

	ops := []domain.Operation{
		&domain.DropTable{Table: "old"},
		&domain.AddColumn{Table: "authors", Column: "views", Definition: "INTEGER"},
	}
	for _, op := range ops {
		assert.False(t, op.CanReverse(), op.Describe())
		assert.True(t, errs.IsMigration(op.Reverse(ctx, rec)), op.Describe())
	}
	assert.Empty(t, rec.statements)
	assert.True(t, (&domain.CreateTable{Table: "t"}).CanReverse())
}

func TestMigrationApplyOrder(t *testing.T) {
	rec := &recorder{}
	m := &domain.Migration{Name: "20240101_000000_auto", Operations: []domain.Operation{
		&domain.CreateTable{Table: "a", Columns: []domain.ColumnDef{{Name: "id", Definition: "INTEGER PRIMARY KEY"}}},
		&domain.CreateTable{Table: "b", Columns: []domain.ColumnDef{{Name: "id", Definition: "INTEGER PRIMARY KEY"}}},
	}}

	require.NoError(t, m.Apply(context.Background(), rec))
	require.NoError(t, m.Reverse(context.Background(), rec))

	assert.Equal(t, []string{
		`CREATE TABLE IF NOT EXISTS "a" ("id" INTEGER PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS "b" ("id" INTEGER PRIMARY KEY)`,
		`DROP TABLE IF EXISTS "b"`,
		`DROP TABLE IF EXISTS "a"`,
	}, rec.statements)
	assert.Equal(t, m.Statements(), rec.statements[:2])
}

func TestMigrationApplyHaltsOnFailure(t *testing.T) {
	rec := &recorder{failOn: `DROP TABLE IF EXISTS "b"`}
	m := &domain.Migration{Name: "m", Operations: []domain.Operation{
		&domain.DropTable{Table: "a"},
		&domain.DropTable{Table: "b"},
		&domain.DropTable{Table: "c"},
	}}

	err := m.Apply(context.Background(), rec)
	assert.True(t, errs.IsMigration(err))
	assert.Contains(t, err.Error(), "operation 2")
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "a"`}, rec.statements)
}

func TestMigrationReverseChecksUpFront(t *testing.T) {
	rec := &recorder{}
	m := &domain.Migration{Name: "m", Operations: []domain.Operation{
		&domain.CreateTable{Table: "a"},
		&domain.AddColumn{Table: "a", Column: "x", Definition: "TEXT"},
	}}

	assert.False(t, m.CanReverse())
	err := m.Reverse(context.Background(), rec)
	assert.True(t, errs.IsMigration(err))
	assert.Empty(t, rec.statements)
}

func TestMigrationState(t *testing.T) {
	m := &domain.Migration{Name: "m"}
	assert.Equal(t, domain.Pending, m.State())
	now := time.Now()
	m.AppliedAt = &now
	assert.Equal(t, domain.Applied, m.State())
}
