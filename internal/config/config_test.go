package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/config"
)

func write(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Loader{Fs: afero.NewMemMapFs(), Home: "/home/nobody"}.Load()
	require.NoError(t, err)

	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "schema.yaml", cfg.Schema)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.File)
	assert.Equal(t, []string{"default"}, cfg.Aliases())

	db, ok := cfg.Database("default")
	require.True(t, ok)
	assert.Equal(t, database.DriverCGO, db.Driver)
	assert.Equal(t, config.DefaultDSN, db.DSN)
	assert.Equal(t, 64, db.StatementCacheSize)
}

func TestExplicitFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/etc/baseorm.yaml", `
databases:
  default:
    dsn: app.db
  analytics:
    driver: sqlite
    dsn: analytics.db
    max_idle_time: 30s
    statement_cache_size: 8
migrations_dir: db/migrations
metrics_file: metrics.prom
`)

	cfg, err := config.Loader{Fs: fs, File: "/etc/baseorm.yaml", Home: "/home/nobody"}.Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/baseorm.yaml", cfg.File)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	assert.Equal(t, "metrics.prom", cfg.MetricsFile)
	assert.Equal(t, []string{"analytics", "default"}, cfg.Aliases())

	def, _ := cfg.Database("default")
	assert.Equal(t, "app.db", def.DSN)
	assert.Equal(t, database.DriverCGO, def.Driver)

	analytics, _ := cfg.Database("analytics")
	assert.Equal(t, database.Config{
		Driver:             database.DriverPure,
		DSN:                "analytics.db",
		MaxIdleTime:        30 * time.Second,
		StatementCacheSize: 8,
	}, analytics)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := config.Loader{Fs: afero.NewMemMapFs(), File: "/nope.yaml"}.Load()
	assert.Error(t, err)
}

func TestSearchPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/home/ann/.baseorm/baseorm.yaml", "schema: home.yaml\n")

	cfg, err := config.Loader{Fs: fs, Home: "/home/ann"}.Load()
	require.NoError(t, err)
	assert.Equal(t, "home.yaml", cfg.Schema)

	wd, err := os.Getwd()
	require.NoError(t, err)
	write(t, fs, filepath.Join(wd, "baseorm.yaml"), "schema: local.yaml\n")

	cfg, err = config.Loader{Fs: fs, Home: "/home/ann"}.Load()
	require.NoError(t, err)
	assert.Equal(t, "local.yaml", cfg.Schema)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BASEORM_MIGRATIONS_DIR", "env/migrations")
	t.Setenv("BASEORM_DATABASES_DEFAULT_DSN", "env.db")

	cfg, err := config.Loader{Fs: afero.NewMemMapFs(), Home: "/home/nobody"}.Load()
	require.NoError(t, err)
	assert.Equal(t, "env/migrations", cfg.MigrationsDir)
	db, _ := cfg.Database("default")
	assert.Equal(t, "env.db", db.DSN)
}

func TestDotenv(t *testing.T) {
	t.Setenv("BASEORM_SCHEMA", "process.yaml")

	fs := afero.NewMemMapFs()
	write(t, fs, ".env", "BASEORM_SCHEMA=dotenv.yaml\nBASEORM_METRICS_FILE=out.prom\nUNRELATED=1\n")
	write(t, fs, ".env.local", "BASEORM_DEBUG=true\n")

	cfg, err := config.Loader{Fs: fs, Home: "/home/nobody"}.Load()
	require.NoError(t, err)
	assert.Equal(t, "process.yaml", cfg.Schema)
	assert.Equal(t, "out.prom", cfg.MetricsFile)
	assert.True(t, cfg.Debug)

	write(t, fs, ".env.local", "BASEORM_SCHEMA=local.yaml\n")
	cfg, err = config.Loader{Fs: fs, Home: "/home/nobody"}.Load()
	require.NoError(t, err)
	assert.Equal(t, "local.yaml", cfg.Schema)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "BASEORM_DATABASES_DEFAULT_DSN", config.EnvName("databases.default.dsn"))
	assert.Equal(t, "BASEORM_DEBUG", config.EnvName("debug"))
}
