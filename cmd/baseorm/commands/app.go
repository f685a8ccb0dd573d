// Package commands implements the baseorm command-line tool.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/adapters/storage"
	"github.com/baseorm/baseorm/internal/adapters/telemetry"
	"github.com/baseorm/baseorm/internal/config"
	"github.com/baseorm/baseorm/internal/core/migration/manager"
	"github.com/baseorm/baseorm/internal/core/schema"
	"github.com/baseorm/baseorm/internal/debug"
	"github.com/baseorm/baseorm/internal/ui"
	"github.com/baseorm/baseorm/pkg/orm"
)

// App holds what every command shares: flags, configuration, output and
// the lazily opened database.
type App struct {
	UI *ui.Printer
	Fs afero.Fs

	configFile  string
	alias       string
	debug       bool
	metricsFile string

	cfg     *config.Config
	metrics *prometheus.Registry
	db      *orm.DB
}

// NewApp returns an App printing to p and reading files from fs.
func NewApp(p *ui.Printer, fs afero.Fs) *App {
	return &App{UI: p, Fs: fs, alias: database.DefaultAlias}
}

func (a *App) setup(*cobra.Command, []string) error {
	cfg, err := config.Loader{Fs: a.Fs, File: a.configFile}.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	debug.Init(a.debug || cfg.Debug)
	if cfg.File != "" {
		debug.Debug("config loaded", "file", cfg.File)
	}
	if a.metricsFile == "" {
		a.metricsFile = cfg.MetricsFile
	}
	if a.metricsFile != "" {
		a.metrics = prometheus.NewRegistry()
	}
	return nil
}

func (a *App) teardown(*cobra.Command, []string) error {
	var errList []error
	if a.db != nil {
		errList = append(errList, a.db.Close())
		a.db = nil
	}
	if a.metrics != nil {
		if err := telemetry.WriteFile(a.metricsFile, a.metrics); err != nil {
			errList = append(errList, fmt.Errorf("write metrics: %w", err))
		} else {
			debug.Debug("metrics written", "file", a.metricsFile)
		}
	}
	return errors.Join(errList...)
}

// models loads the schema file.
func (a *App) models() (*schema.Registry, error) {
	reg, err := schema.LoadFile(a.Fs, a.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return reg, nil
}

// open binds the configured databases. With withSchema the schema file
// is loaded and its models become available through Objects.
func (a *App) open(withSchema bool) (*orm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if _, ok := a.cfg.Database(a.alias); !ok {
		return nil, fmt.Errorf("database %q is not configured", a.alias)
	}

	var models *schema.Registry
	if withSchema {
		reg, err := a.models()
		if err != nil {
			return nil, err
		}
		models = reg
	}

	var recorder telemetry.Recorder = telemetry.Noop{}
	if a.metrics != nil {
		p, err := telemetry.NewPrometheus(a.metrics)
		if err != nil {
			return nil, err
		}
		recorder = p
	}

	opts := []orm.Option{
		orm.WithRecorder(recorder),
		orm.WithStorage(storage.New(a.Fs)),
		orm.WithMigrationsDir(a.cfg.MigrationsDir),
	}
	for _, alias := range a.cfg.Aliases() {
		cfg, _ := a.cfg.Database(alias)
		opts = append(opts, orm.WithDatabase(alias, cfg))
	}

	db, err := orm.Open(models, opts...)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *App) migrator(ctx context.Context, withSchema bool) (*orm.DB, *manager.Manager, error) {
	db, err := a.open(withSchema)
	if err != nil {
		return nil, nil, err
	}
	m, err := db.Migrator(ctx, a.alias)
	if err != nil {
		return nil, nil, err
	}
	return db, m, nil
}
