// Package history keeps the ledger of applied migrations.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/baseorm/baseorm/internal/core/migration/domain"
	qdomain "github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Table is the ledger table name.
const Table = "_migrations"

const createTable = `CREATE TABLE IF NOT EXISTS "_migrations" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"name" VARCHAR(255) UNIQUE NOT NULL,
	"applied_at" TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

var appliedAt = schema.DateTimeField("applied_at")

// DB is what the ledger needs from a connection.
type DB interface {
	domain.Execer
	Query(ctx context.Context, query string, args ...any) ([]qdomain.Row, error)
}

// Entry is one ledger row.
type Entry struct {
	ID        int64
	Name      string
	AppliedAt time.Time
}

// Ledger reads and writes the ledger table.
type Ledger struct {
	db DB
}

// New creates a ledger over db.
func New(db DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureTable creates the ledger table if it does not exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	_, err := l.db.Exec(ctx, createTable)
	return err
}

// Applied returns the ledger rows in insertion order.
func (l *Ledger) Applied(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT "id", "name", "applied_at" FROM "_migrations" ORDER BY "id"`)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{}
		if id, ok := r["id"].(int64); ok {
			e.ID = id
		}
		e.Name = fmt.Sprint(r["name"])
		if v, err := appliedAt.FromDB(r["applied_at"]); err == nil && v != nil {
			e.AppliedAt = v.(time.Time)
		}
		out = append(out, e)
	}
	return out, nil
}

// Names returns the applied migration names as a set.
func (l *Ledger) Names(ctx context.Context) (map[string]Entry, error) {
	entries, err := l.Applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Entry, len(entries))
	for _, e := range entries {
		out[e.Name] = e
	}
	return out, nil
}

// Record appends a ledger row for name.
func (l *Ledger) Record(ctx context.Context, name string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO "_migrations" ("name") VALUES (?)`, name)
	return err
}

// Remove deletes the ledger row of name.
func (l *Ledger) Remove(ctx context.Context, name string) error {
	_, err := l.db.Exec(ctx, `DELETE FROM "_migrations" WHERE "name" = ?`, name)
	return err
}
