// Package orm is the public entry point: it binds declared models to
// configured databases and hands out per-model managers and migrators.
package orm

import (
	"context"
	"database/sql"
	"time"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/adapters/storage"
	"github.com/baseorm/baseorm/internal/adapters/telemetry"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/migration/manager"
	"github.com/baseorm/baseorm/internal/core/migration/store"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// DefaultMigrationsDir is where migration units live unless configured.
const DefaultMigrationsDir = "migrations"

type options struct {
	databases     map[string]database.Config
	registry      *database.Registry
	recorder      telemetry.Recorder
	storage       storage.Storage
	migrationsDir string
	now           func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithDatabase configures alias.
func WithDatabase(alias string, cfg database.Config) Option {
	return func(o *options) { o.databases[alias] = cfg }
}

// WithRegistry uses an existing connection registry. Databases passed
// with WithDatabase are added to it.
func WithRegistry(reg *database.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithRecorder reports statements and migrations to r.
func WithRecorder(r telemetry.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithStorage sets where migration units are kept.
func WithStorage(s storage.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithMigrationsDir sets the unit directory inside the storage.
func WithMigrationsDir(dir string) Option {
	return func(o *options) { o.migrationsDir = dir }
}

// WithClock replaces the clock used for auto timestamps and unit names.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// DB ties a schema registry to a connection registry.
type DB struct {
	models        *schema.Registry
	registry      *database.Registry
	recorder      telemetry.Recorder
	storage       storage.Storage
	migrationsDir string
	now           func() time.Time
}

// Open binds models to the configured databases. Every model alias must
// be configured; connections are opened on first use.
func Open(models *schema.Registry, opts ...Option) (*DB, error) {
	o := &options{
		databases:     make(map[string]database.Config),
		recorder:      telemetry.Noop{},
		migrationsDir: DefaultMigrationsDir,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = database.NewRegistry(database.WithRecorder(o.recorder))
	}
	for alias, cfg := range o.databases {
		o.registry.Configure(alias, cfg)
	}
	if o.storage == nil {
		o.storage = storage.NewFilesystem(".")
	}
	if models == nil {
		var err error
		if models, err = schema.NewRegistry(); err != nil {
			return nil, err
		}
	}

	for _, m := range models.Models() {
		if _, ok := o.registry.Config(m.Alias); !ok {
			return nil, errs.New(errs.ErrConnection, "open", "model %s uses unconfigured database %q", m.Name, m.Alias)
		}
	}

	return &DB{
		models:        models,
		registry:      o.registry,
		recorder:      o.recorder,
		storage:       o.storage,
		migrationsDir: o.migrationsDir,
		now:           o.now,
	}, nil
}

// Close closes every connection.
func (db *DB) Close() error {
	return db.registry.Close()
}

// Schema returns the model registry.
func (db *DB) Schema() *schema.Registry { return db.models }

// Registry returns the connection registry.
func (db *DB) Registry() *database.Registry { return db.registry }

// Conn returns the shared connection of alias.
func (db *DB) Conn(ctx context.Context, alias string) (*database.Connection, error) {
	return db.registry.Conn(ctx, alias)
}

// Atomic runs fn in a transaction scope on alias.
func (db *DB) Atomic(ctx context.Context, alias string, fn func(ctx context.Context) error) error {
	c, err := db.Conn(ctx, alias)
	if err != nil {
		return err
	}
	return c.Atomic(ctx, fn)
}

// Models returns the models bound to alias, in registration order.
func (db *DB) Models(alias string) []*schema.Model {
	var out []*schema.Model
	for _, m := range db.models.Models() {
		if m.Alias == alias {
			out = append(out, m)
		}
	}
	return out
}

// Objects returns the manager of the model registered as name.
func (db *DB) Objects(name string) (*Manager, error) {
	m, ok := db.models.Model(name)
	if !ok {
		return nil, errs.New(errs.ErrQuery, "objects", "no model named %q", name)
	}
	return &Manager{db: db, model: m, conn: lazyConn{registry: db.registry, alias: m.Alias}}, nil
}

// Migrator returns a migration manager for alias.
func (db *DB) Migrator(ctx context.Context, alias string) (*manager.Manager, error) {
	c, err := db.Conn(ctx, alias)
	if err != nil {
		return nil, err
	}
	st := store.New(db.storage, db.migrationsDir, store.WithClock(db.now))
	return manager.New(c, st, manager.WithRecorder(db.recorder)), nil
}

// lazyConn resolves the connection of alias on every call so managers
// can be created before any database is reachable.
type lazyConn struct {
	registry *database.Registry
	alias    string
}

func (l lazyConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c, err := l.registry.Conn(ctx, l.alias)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, query, args...)
}

func (l lazyConn) Query(ctx context.Context, query string, args ...any) ([]domain.Row, error) {
	c, err := l.registry.Conn(ctx, l.alias)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, query, args...)
}
