package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/migration/history"
)

func TestLedger(t *testing.T) {
	for _, driver := range []string{database.DriverCGO, database.DriverPure} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			c, err := database.Open(ctx, "default", database.Config{Driver: driver, DSN: ":memory:"}, nil)
			require.NoError(t, err)
			t.Cleanup(func() { c.Close() })

			ledger := history.New(c)
			require.NoError(t, ledger.EnsureTable(ctx))
			require.NoError(t, ledger.EnsureTable(ctx))

			entries, err := ledger.Applied(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)

			// insertion order wins over name order
			require.NoError(t, ledger.Record(ctx, "20240102_000000_b"))
			require.NoError(t, ledger.Record(ctx, "20240101_000000_a"))
			assert.True(t, errs.IsIntegrity(ledger.Record(ctx, "20240101_000000_a")))

			entries, err = ledger.Applied(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "20240102_000000_b", entries[0].Name)
			assert.Equal(t, "20240101_000000_a", entries[1].Name)
			assert.Less(t, entries[0].ID, entries[1].ID)
			assert.WithinDuration(t, time.Now().UTC(), entries[0].AppliedAt, time.Minute)

			require.NoError(t, ledger.Remove(ctx, "20240102_000000_b"))
			names, err := ledger.Names(ctx)
			require.NoError(t, err)
			assert.Len(t, names, 1)
			assert.Contains(t, names, "20240101_000000_a")
		})
	}
}
