package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/baseorm/baseorm/internal/core/errs"
)

// State is the lifecycle position of a migration.
type State string

const (
	// Pending migrations have no ledger row.
	Pending State = "Pending"
	// Applied migrations have a ledger row.
	Applied State = "Applied"
)

// Migration is a named, ordered list of operations.
type Migration struct {
	Name       string
	Operations []Operation
	AppliedAt  *time.Time
}

// Apply runs the operations in declaration order and stops at the first
// failure.
func (m *Migration) Apply(ctx context.Context, ex Execer) error {
	for i, op := range m.Operations {
		if err := op.Apply(ctx, ex); err != nil {
			return errs.Wrap(errs.ErrMigration, "apply",
				fmt.Errorf("%s: operation %d (%s): %w", m.Name, i+1, op.Describe(), err))
		}
	}
	return nil
}

// CanReverse reports whether every operation can be reversed.
func (m *Migration) CanReverse() bool {
	return m.Irreversible() == nil
}

// Irreversible returns the first operation that cannot be reversed.
func (m *Migration) Irreversible() Operation {
	for _, op := range m.Operations {
		if !op.CanReverse() {
			return op
		}
	}
	return nil
}

// Reverse undoes the operations in reverse declaration order. Nothing is
// executed when any operation is one-way.
func (m *Migration) Reverse(ctx context.Context, ex Execer) error {
	if op := m.Irreversible(); op != nil {
		return errs.New(errs.ErrMigration, "reverse", "%s: %s cannot be reversed", m.Name, op.Describe())
	}
	for i := len(m.Operations) - 1; i >= 0; i-- {
		op := m.Operations[i]
		if err := op.Reverse(ctx, ex); err != nil {
			return errs.Wrap(errs.ErrMigration, "reverse",
				fmt.Errorf("%s: operation %d (%s): %w", m.Name, i+1, op.Describe(), err))
		}
	}
	return nil
}

// State derives the lifecycle position from AppliedAt.
func (m *Migration) State() State {
	if m.AppliedAt != nil {
		return Applied
	}
	return Pending
}

// Statements lists the SQL Apply would run.
func (m *Migration) Statements() []string {
	out := make([]string, len(m.Operations))
	for i, op := range m.Operations {
		out[i] = op.SQL()
	}
	return out
}
