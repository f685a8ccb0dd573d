package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/core/errs"
)

func TestUnknownFieldIsQueryError(t *testing.T) {
	err := errs.New(errs.ErrUnknownField, "update", "users has no field %q", "nickname")

	assert.True(t, errs.IsUnknownField(err))
	assert.ErrorIs(t, err, errs.ErrQuery)
	assert.False(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), `users has no field "nickname"`)
}

func TestWrapKeepsCauseAndStatement(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: users.email")
	err := errs.Wrap(errs.ErrIntegrity, "exec", cause).
		WithStatement(`INSERT INTO "users" ("email") VALUES (?)`, []any{"a@example.com"})

	wrapped := fmt.Errorf("create user: %w", err)

	assert.True(t, errs.IsIntegrity(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, errs.IsConnection(wrapped))

	sql, params, ok := errs.Statement(wrapped)
	require.True(t, ok)
	assert.Equal(t, `INSERT INTO "users" ("email") VALUES (?)`, sql)
	assert.Equal(t, []any{"a@example.com"}, params)
	assert.Contains(t, err.Error(), "params: [a@example.com]")
}

func TestStatementAbsent(t *testing.T) {
	_, _, ok := errs.Statement(errs.New(errs.ErrMigration, "rollback", "nothing to do"))
	assert.False(t, ok)
	_, _, ok = errs.Statement(errors.New("plain"))
	assert.False(t, ok)
}

func TestStatementFoundThroughMigrationError(t *testing.T) {
	inner := errs.Wrap(errs.ErrConnection, "exec", errors.New("no such table: posts")).
		WithStatement(`ALTER TABLE "posts" ADD COLUMN "views" INTEGER`, nil)
	err := errs.Wrap(errs.ErrMigration, "migrate", fmt.Errorf("20240101_000000_auto: %w", inner))

	assert.True(t, errs.IsMigration(err))
	assert.True(t, errs.IsConnection(err))
	sql, _, ok := errs.Statement(err)
	require.True(t, ok)
	assert.Equal(t, `ALTER TABLE "posts" ADD COLUMN "views" INTEGER`, sql)
}
