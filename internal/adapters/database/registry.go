package database

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/baseorm/baseorm/internal/adapters/telemetry"
	"github.com/baseorm/baseorm/internal/core/errs"
)

type handleKey struct {
	alias  string
	worker string
}

// Registry maps aliases to configurations and hands out one live
// connection per (alias, worker) pair. Create one per application and
// pass it where it is needed.
type Registry struct {
	mu       sync.Mutex
	configs  map[string]Config
	handles  map[handleKey]*Connection
	recorder telemetry.Recorder
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRecorder sets the recorder handed to every connection.
func WithRecorder(r telemetry.Recorder) RegistryOption {
	return func(reg *Registry) { reg.recorder = r }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		configs:  make(map[string]Config),
		handles:  make(map[handleKey]*Connection),
		recorder: telemetry.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure registers or replaces the configuration of alias. Handles
// already opened under the alias are left untouched.
func (r *Registry) Configure(alias string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[alias] = cfg
}

// Aliases lists the configured aliases in sorted order.
func (r *Registry) Aliases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.configs))
	for a := range r.configs {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Config returns the configuration of alias.
func (r *Registry) Config(alias string) (Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[alias]
	return cfg, ok
}

// Conn returns the shared handle of alias, opening it on first use.
func (r *Registry) Conn(ctx context.Context, alias string) (*Connection, error) {
	return r.WorkerConn(ctx, alias, "")
}

// WorkerConn returns the handle of alias dedicated to worker.
func (r *Registry) WorkerConn(ctx context.Context, alias, worker string) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := handleKey{alias: alias, worker: worker}
	if c, ok := r.handles[key]; ok {
		return c, nil
	}
	cfg, ok := r.configs[alias]
	if !ok {
		return nil, errs.New(errs.ErrConnection, "connect", "no database configured for alias %q", alias)
	}
	c, err := Open(ctx, alias, cfg, r.recorder)
	if err != nil {
		return nil, err
	}
	r.handles[key] = c
	return c, nil
}

// Release closes and forgets the handle of (alias, worker).
func (r *Registry) Release(alias, worker string) error {
	r.mu.Lock()
	c, ok := r.handles[handleKey{alias: alias, worker: worker}]
	delete(r.handles, handleKey{alias: alias, worker: worker})
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Close()
}

// Close closes every open handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[handleKey]*Connection)
	r.mu.Unlock()

	var errList []error
	for _, c := range handles {
		if err := c.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
