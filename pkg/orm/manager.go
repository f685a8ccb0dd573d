package orm

import (
	"context"
	"sort"
	"strings"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/builder"
	"github.com/baseorm/baseorm/internal/core/query/compiler"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Manager is the per-model entry point for queries and record writes.
type Manager struct {
	db    *DB
	model *schema.Model
	conn  builder.Conn
}

// Model is the managed model.
func (m *Manager) Model() *schema.Model { return m.model }

// Query starts an unfiltered query set.
func (m *Manager) Query() *builder.QuerySet {
	return builder.New(m.model, m.conn)
}

// Filter is shorthand for Query().Filter(conds...).
func (m *Manager) Filter(conds ...domain.Condition) *builder.QuerySet {
	return m.Query().Filter(conds...)
}

// Exclude is shorthand for Query().Exclude(conds...).
func (m *Manager) Exclude(conds ...domain.Condition) *builder.QuerySet {
	return m.Query().Exclude(conds...)
}

// Get fetches exactly one record.
func (m *Manager) Get(ctx context.Context, conds ...domain.Condition) (builder.Record, error) {
	return m.Query().Get(ctx, conds...)
}

// Create inserts a record and returns it as stored, generated primary
// key and column defaults included.
func (m *Manager) Create(ctx context.Context, values map[string]any) (builder.Record, error) {
	if err := m.known("create", values); err != nil {
		return nil, err
	}
	if err := m.model.CheckValues(values, true); err != nil {
		return nil, err
	}

	now := m.db.now().UTC()
	var (
		cols []string
		vals []any
	)
	for _, f := range m.model.Fields {
		var v any
		if f.Generated() {
			v = now
		} else {
			given, ok := m.model.Lookup(values, f)
			if !ok || (given == nil && f.PrimaryKey) {
				continue
			}
			v = given
		}
		dbv, err := f.ToDB(v)
		if err != nil {
			return nil, errs.Wrap(errs.ErrValidation, "create", err)
		}
		cols = append(cols, f.ColumnName())
		vals = append(vals, dbv)
	}

	st := compiler.Insert(m.model.Table, cols, vals)
	res, err := m.conn.Exec(ctx, st.SQL, st.Params...)
	if err != nil {
		return nil, err
	}

	pk, ok := m.model.PrimaryKey()
	if !ok {
		return builder.Record(values), nil
	}
	pkv, given := m.model.Lookup(values, pk)
	if !given || pkv == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, errs.Wrap(errs.ErrConnection, "create", err)
		}
		pkv = id
	}
	return m.Get(ctx, builder.Where(pk.ColumnName(), pkv))
}

// Save writes rec back. A record without a primary key value is
// inserted; otherwise the given fields are updated and auto-now fields
// are stamped.
func (m *Manager) Save(ctx context.Context, rec builder.Record) (builder.Record, error) {
	pk, ok := m.model.PrimaryKey()
	if !ok {
		return nil, errs.New(errs.ErrQuery, "save", "%s has no primary key", m.model.Name)
	}
	pkv, ok := m.model.Lookup(rec, pk)
	if !ok || pkv == nil {
		return m.Create(ctx, rec)
	}
	if err := m.known("save", rec); err != nil {
		return nil, err
	}

	values := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == pk.Name || k == pk.ColumnName() {
			continue
		}
		values[k] = v
	}
	now := m.db.now().UTC()
	for _, f := range m.model.Fields {
		if f.AutoNow {
			delete(values, f.ColumnName())
			values[f.Name] = now
		}
	}
	if err := m.model.CheckValues(values, false); err != nil {
		return nil, err
	}

	n, err := m.Filter(builder.Where(pk.ColumnName(), pkv)).Update(ctx, values)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errs.New(errs.ErrNotFound, "save", "%s with %s=%v does not exist", m.model.Name, pk.Name, pkv)
	}
	return m.Get(ctx, builder.Where(pk.ColumnName(), pkv))
}

// Delete removes the row rec was loaded from.
func (m *Manager) Delete(ctx context.Context, rec builder.Record) error {
	pk, pkv, err := m.primaryKey("delete", rec)
	if err != nil {
		return err
	}
	n, err := m.Filter(builder.Where(pk.ColumnName(), pkv)).Delete(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.New(errs.ErrNotFound, "delete", "%s with %s=%v does not exist", m.model.Name, pk.Name, pkv)
	}
	return nil
}

// Refresh reloads rec from the database.
func (m *Manager) Refresh(ctx context.Context, rec builder.Record) (builder.Record, error) {
	pk, pkv, err := m.primaryKey("refresh", rec)
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, builder.Where(pk.ColumnName(), pkv))
}

func (m *Manager) primaryKey(op string, rec builder.Record) (schema.Field, any, error) {
	pk, ok := m.model.PrimaryKey()
	if !ok {
		return schema.Field{}, nil, errs.New(errs.ErrQuery, op, "%s has no primary key", m.model.Name)
	}
	pkv, ok := m.model.Lookup(rec, pk)
	if !ok || pkv == nil {
		return schema.Field{}, nil, errs.New(errs.ErrQuery, op, "%s record has no %s", m.model.Name, pk.Name)
	}
	return pk, pkv, nil
}

func (m *Manager) known(op string, values map[string]any) error {
	var unknown []string
	for name := range values {
		if _, ok := m.model.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errs.New(errs.ErrUnknownField, op, "%s has no field %s", m.model.Name, strings.Join(unknown, ", "))
}
