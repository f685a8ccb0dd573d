package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/hashicorp/go-version"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/baseorm/baseorm/internal/adapters/telemetry"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/debug"
)

// Connection is one live database handle. Statements run in autocommit
// mode unless a transaction scope is open; scopes nest and only the
// outermost one commits or rolls back.
//
// A Connection is meant for one worker at a time. Use Registry to get a
// handle per worker.
type Connection struct {
	alias    string
	db       *sqlx.DB
	recorder telemetry.Recorder

	mu    sync.Mutex
	tx    *sqlx.Tx
	depth int
	stmts *lru.Cache
}

type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, alias string, cfg Config, recorder telemetry.Recorder) (*Connection, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, errs.Wrap(errs.ErrConnection, "open", fmt.Errorf("alias %s: %w", alias, err))
	}
	if recorder == nil {
		recorder = telemetry.Noop{}
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConnection, "open", err)
	}

	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrConnection, "ping", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrConnection, "open", fmt.Errorf("enable foreign keys: %w", err))
	}

	c := &Connection{alias: alias, db: db, recorder: recorder}
	if cfg.StatementCacheSize > 0 {
		c.stmts = lru.New(cfg.StatementCacheSize)
		c.stmts.OnEvicted = func(_ lru.Key, v interface{}) {
			v.(*sqlx.Stmt).Close()
		}
	}
	debug.Debug("connection opened", "alias", alias, "driver", cfg.Driver, "dsn", cfg.DSN)
	return c, nil
}

// Alias is the registry alias the connection was opened under.
func (c *Connection) Alias() string { return c.alias }

// DB exposes the underlying handle.
func (c *Connection) DB() *sqlx.DB { return c.db }

// Exec runs a statement that returns no rows.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := c.exec(ctx, query, args)
	c.observe(query, args, start, err)
	if err != nil {
		return nil, classify("exec", query, args, err)
	}
	return res, nil
}

// Query runs a statement and reads every row into memory.
func (c *Connection) Query(ctx context.Context, query string, args ...any) ([]domain.Row, error) {
	start := time.Now()
	rows, err := c.query(ctx, query, args)
	c.observe(query, args, start, err)
	if err != nil {
		return nil, classify("query", query, args, err)
	}
	return rows, nil
}

func (c *Connection) observe(query string, args []any, start time.Time, err error) {
	took := time.Since(start)
	debug.Statement(query, args, took, err)
	c.recorder.ObserveStatement(telemetry.Verb(query), took, err)
}

func (c *Connection) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	if stmt, err := c.statement(ctx, query); err != nil {
		return nil, err
	} else if stmt != nil {
		return stmt.ExecContext(ctx, args...)
	}
	return c.target().ExecContext(ctx, query, args...)
}

func (c *Connection) query(ctx context.Context, query string, args []any) ([]domain.Row, error) {
	var rows *sqlx.Rows
	stmt, err := c.statement(ctx, query)
	if err != nil {
		return nil, err
	}
	if stmt != nil {
		rows, err = stmt.QueryxContext(ctx, args...)
	} else {
		rows, err = c.target().QueryxContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, domain.Row(row))
	}
	return out, rows.Err()
}

func (c *Connection) target() queryer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// statement returns a cached prepared statement for DML, bound to the
// open transaction if there is one. It returns nil when caching does not
// apply.
func (c *Connection) statement(ctx context.Context, query string) (*sqlx.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stmts == nil {
		return nil, nil
	}
	switch telemetry.Verb(query) {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
	default:
		return nil, nil
	}

	if v, ok := c.stmts.Get(query); ok {
		stmt := v.(*sqlx.Stmt)
		if c.tx != nil {
			return c.tx.StmtxContext(ctx, stmt), nil
		}
		return stmt, nil
	}
	if c.tx != nil {
		// the only connection is held by the transaction
		return nil, nil
	}
	stmt, err := c.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	c.stmts.Add(query, stmt)
	return stmt, nil
}

// Depth is the number of open transaction scopes.
func (c *Connection) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

// Begin opens a transaction scope.
func (c *Connection) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.depth == 0 {
		tx, err := c.db.BeginTxx(ctx, nil)
		if err != nil {
			return classify("begin", "BEGIN", nil, err)
		}
		c.tx = tx
		debug.Debug("transaction started", "alias", c.alias)
	}
	c.depth++
	return nil
}

// Commit closes a scope, committing when it is the outermost one.
func (c *Connection) Commit() error {
	return c.end("commit", (*sqlx.Tx).Commit)
}

// Rollback closes a scope, rolling back when it is the outermost one.
func (c *Connection) Rollback() error {
	return c.end("rollback", (*sqlx.Tx).Rollback)
}

func (c *Connection) end(op string, finish func(*sqlx.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.depth == 0 {
		return errs.New(errs.ErrConnection, op, "no transaction in progress")
	}
	c.depth--
	if c.depth > 0 {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := finish(tx); err != nil {
		if op == "rollback" && errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return errs.Wrap(errs.ErrConnection, op, err)
	}
	debug.Debug("transaction finished", "alias", c.alias, "op", op)
	return nil
}

// Atomic runs fn inside a transaction scope. The outermost scope commits
// when fn returns nil and rolls back when it returns an error or panics.
// Inner scopes only track depth.
func (c *Connection) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := c.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = c.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx); err != nil {
		if rbErr := c.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return c.Commit()
}

// EngineVersion reports the SQLite library version.
func (c *Connection) EngineVersion(ctx context.Context) (*version.Version, error) {
	rows, err := c.Query(ctx, "SELECT sqlite_version() AS version")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrConnection, "version", "empty result")
	}
	return version.NewVersion(fmt.Sprint(rows[0]["version"]))
}

// Close releases cached statements and the handle.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
		c.depth = 0
	}
	if c.stmts != nil {
		c.stmts.Clear()
	}
	debug.Debug("connection closed", "alias", c.alias)
	return c.db.Close()
}
