package telemetry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/adapters/telemetry"
)

func TestVerb(t *testing.T) {
	assert.Equal(t, "SELECT", telemetry.Verb(`  select * FROM "users"`))
	assert.Equal(t, "ALTER", telemetry.Verb(`ALTER TABLE "users" ADD COLUMN "age" INTEGER`))
	assert.Equal(t, "UNKNOWN", telemetry.Verb("   "))
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := telemetry.NewPrometheus(reg)
	require.NoError(t, err)

	rec.ObserveStatement("SELECT", 2*time.Millisecond, nil)
	rec.ObserveStatement("SELECT", time.Millisecond, nil)
	rec.ObserveStatement("DELETE", time.Millisecond, errors.New("locked"))
	rec.ObserveMigration(telemetry.Apply, "20240101_000000_init", nil)
	rec.ObserveMigration(telemetry.Rollback, "20240101_000000_init", errors.New("irreversible"))

	series, err := testutil.GatherAndCount(reg, "baseorm_statements_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)

	_, err = telemetry.NewPrometheus(reg)
	assert.Error(t, err, "collectors register once per registry")

	path := filepath.Join(t.TempDir(), "baseorm.prom")
	require.NoError(t, telemetry.WriteFile(path, reg))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `baseorm_statements_total{status="success",verb="SELECT"} 2`)
	assert.Contains(t, string(body), `baseorm_statements_total{status="error",verb="DELETE"} 1`)
	assert.Contains(t, string(body), `baseorm_migrations_total{direction="rollback",status="error"} 1`)
}

func TestNoop(t *testing.T) {
	var r telemetry.Recorder = telemetry.Noop{}
	r.ObserveStatement("SELECT", time.Second, nil)
	r.ObserveMigration(telemetry.Apply, "x", nil)
}
