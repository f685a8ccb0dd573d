// Package manager detects schema changes, writes migration units, and
// applies or reverses them against a database while keeping the ledger.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/baseorm/baseorm/internal/adapters/telemetry"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/migration/differ"
	"github.com/baseorm/baseorm/internal/core/migration/domain"
	"github.com/baseorm/baseorm/internal/core/migration/history"
	"github.com/baseorm/baseorm/internal/core/migration/introspector"
	"github.com/baseorm/baseorm/internal/core/migration/store"
	"github.com/baseorm/baseorm/internal/core/schema"
	"github.com/baseorm/baseorm/internal/debug"
)

// Conn is the connection a manager drives.
type Conn interface {
	history.DB
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// Status describes one migration known to the store or the ledger.
type Status struct {
	Name       string
	State      domain.State
	AppliedAt  *time.Time
	Operations int
	// Missing is set for ledger rows without a unit file.
	Missing bool
}

// Manager coordinates the store, the ledger and the live catalog.
type Manager struct {
	conn      Conn
	store     *store.Store
	ledger    *history.Ledger
	inspector *introspector.Introspector
	recorder  telemetry.Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder reports applied and reversed migrations to r.
func WithRecorder(r telemetry.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// New creates a manager for conn with units kept in st.
func New(conn Conn, st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		conn:      conn,
		store:     st,
		ledger:    history.New(conn),
		inspector: introspector.New(conn),
		recorder:  telemetry.Noop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the unit store.
func (m *Manager) Store() *store.Store { return m.store }

// AutoDetectChanges compares models with the live catalog.
func (m *Manager) AutoDetectChanges(ctx context.Context, models []*schema.Model) ([]domain.Operation, error) {
	catalog, err := m.inspector.Inspect(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "detect", err)
	}
	return differ.Detect(models, catalog), nil
}

// MakeMigrations detects changes and stores them as a new unit. It
// returns nil when there is nothing to do.
func (m *Manager) MakeMigrations(ctx context.Context, models []*schema.Model, description string) (*domain.Migration, error) {
	ops, err := m.AutoDetectChanges(ctx, models)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		debug.Info("no changes detected")
		return nil, nil
	}

	mig := &domain.Migration{Name: m.store.GenerateName(description), Operations: ops}
	if ok, err := m.store.Exists(ctx, mig.Name); err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "makemigrations", err)
	} else if ok {
		return nil, errs.New(errs.ErrMigration, "makemigrations", "migration %s already exists", mig.Name)
	}
	path, err := m.store.Save(ctx, mig)
	if err != nil {
		return nil, err
	}
	debug.Info("created migration", "name", mig.Name, "path", path, "operations", len(ops))
	return mig, nil
}

// Pending loads the stored units without a ledger row, oldest first.
func (m *Manager) Pending(ctx context.Context) ([]*domain.Migration, error) {
	if err := m.ledger.EnsureTable(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "pending", err)
	}
	applied, err := m.ledger.Names(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "pending", err)
	}
	names, err := m.store.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "pending", err)
	}

	var out []*domain.Migration
	for _, name := range names {
		if _, ok := applied[name]; ok {
			continue
		}
		mig, err := m.store.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, mig)
	}
	return out, nil
}

// Plan returns what Migrate would apply.
func (m *Manager) Plan(ctx context.Context) ([]*domain.Migration, error) {
	return m.Pending(ctx)
}

// Migrate applies pending units in name order. Each unit runs in one
// transaction together with its ledger row, so a failing unit leaves no
// trace. The first failure stops the run; units applied before it stay
// applied. The names of applied units are returned.
func (m *Manager) Migrate(ctx context.Context) ([]string, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		debug.Info("no pending migrations")
		return nil, nil
	}

	applied := make([]string, 0, len(pending))
	for _, mig := range pending {
		debug.Info("applying migration", "name", mig.Name, "operations", len(mig.Operations))
		err := m.conn.Atomic(ctx, func(ctx context.Context) error {
			if err := mig.Apply(ctx, m.conn); err != nil {
				return err
			}
			return m.ledger.Record(ctx, mig.Name)
		})
		m.recorder.ObserveMigration(telemetry.Apply, mig.Name, err)
		if err != nil {
			debug.Error("migration failed", "name", mig.Name, "error", err)
			return applied, migrationError("migrate", mig.Name, err)
		}
		applied = append(applied, mig.Name)
	}
	return applied, nil
}

// Rollback reverses the last n applied units, most recent first. Each
// unit is reversed in one transaction together with the removal of its
// ledger row. The names of reversed units are returned.
func (m *Manager) Rollback(ctx context.Context, n int) ([]string, error) {
	if n < 1 {
		return nil, errs.New(errs.ErrMigration, "rollback", "steps must be at least 1, got %d", n)
	}
	if err := m.ledger.EnsureTable(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "rollback", err)
	}
	entries, err := m.ledger.Applied(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "rollback", err)
	}
	if len(entries) == 0 {
		debug.Info("no migrations to roll back")
		return nil, nil
	}
	if n > len(entries) {
		n = len(entries)
	}

	reversed := make([]string, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		name := entries[i].Name
		mig, err := m.store.Load(ctx, name)
		if err != nil {
			m.recorder.ObserveMigration(telemetry.Rollback, name, err)
			return reversed, err
		}

		debug.Info("rolling back migration", "name", name)
		err = m.conn.Atomic(ctx, func(ctx context.Context) error {
			if err := mig.Reverse(ctx, m.conn); err != nil {
				return err
			}
			return m.ledger.Remove(ctx, name)
		})
		m.recorder.ObserveMigration(telemetry.Rollback, name, err)
		if err != nil {
			debug.Error("rollback failed", "name", name, "error", err)
			return reversed, migrationError("rollback", name, err)
		}
		reversed = append(reversed, name)
	}
	return reversed, nil
}

// Status lists stored units in name order followed by ledger rows whose
// unit file is gone.
func (m *Manager) Status(ctx context.Context) ([]Status, error) {
	if err := m.ledger.EnsureTable(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "status", err)
	}
	entries, err := m.ledger.Applied(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "status", err)
	}
	names, err := m.store.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "status", err)
	}

	applied := make(map[string]history.Entry, len(entries))
	for _, e := range entries {
		applied[e.Name] = e
	}

	out := make([]Status, 0, len(names))
	stored := make(map[string]bool, len(names))
	for _, name := range names {
		stored[name] = true
		st := Status{Name: name, State: domain.Pending}
		if mig, err := m.store.Load(ctx, name); err == nil {
			st.Operations = len(mig.Operations)
		} else {
			debug.Warn("unreadable migration unit", "name", name, "error", err)
		}
		if e, ok := applied[name]; ok {
			at := e.AppliedAt
			st.State = domain.Applied
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	for _, e := range entries {
		if stored[e.Name] {
			continue
		}
		at := e.AppliedAt
		out = append(out, Status{Name: e.Name, State: domain.Applied, AppliedAt: &at, Missing: true})
	}
	return out, nil
}

func migrationError(op, name string, err error) error {
	if errs.IsMigration(err) {
		return err
	}
	return errs.Wrap(errs.ErrMigration, op, fmt.Errorf("%s: %w", name, err))
}
