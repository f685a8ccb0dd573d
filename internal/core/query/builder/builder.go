// Package builder provides QuerySet, an immutable lazy query over one
// model. Chainable methods return new query sets; nothing touches the
// database until a terminal method runs.
package builder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/baseorm/baseorm/internal/core/query/compiler"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
	"github.com/baseorm/baseorm/internal/debug"
)

// Conn executes statements for a query set.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) ([]domain.Row, error)
}

// Record is a result row keyed by field name.
type Record map[string]any

// Where builds a filter condition from a lookup key such as "age__gte".
func Where(key string, value any) domain.Condition {
	c := domain.NewCondition(key, value)
	if !c.Operator.Known() {
		debug.Debug("unknown lookup operator, comparing with equality",
			"key", key, "field", c.Field, "operator", c.Operator)
	}
	return c
}

// QuerySet is a lazy query. A query set caches the rows of its first
// evaluation; derived query sets start with an empty cache.
type QuerySet struct {
	model *schema.Model
	conn  Conn
	state domain.State

	mu     sync.Mutex
	rows   []domain.Row
	loaded bool
}

// New starts an unfiltered query set over model.
func New(model *schema.Model, conn Conn) *QuerySet {
	return &QuerySet{
		model: model,
		conn:  conn,
		state: domain.State{Table: model.Table},
	}
}

func (qs *QuerySet) clone() *QuerySet {
	return &QuerySet{model: qs.model, conn: qs.conn, state: qs.state.Clone()}
}

// Model is the model being queried.
func (qs *QuerySet) Model() *schema.Model { return qs.model }

// State returns a copy of the accumulated state.
func (qs *QuerySet) State() domain.State { return qs.state.Clone() }

// Filter narrows the query to rows matching every condition.
func (qs *QuerySet) Filter(conds ...domain.Condition) *QuerySet {
	c := qs.clone()
	c.state.Filters = append(c.state.Filters, conds...)
	return c
}

// Exclude removes rows matching any of the conditions.
func (qs *QuerySet) Exclude(conds ...domain.Condition) *QuerySet {
	c := qs.clone()
	c.state.Excludes = append(c.state.Excludes, conds...)
	return c
}

// OrderBy replaces the ordering. A leading "-" sorts descending.
func (qs *QuerySet) OrderBy(fields ...string) *QuerySet {
	c := qs.clone()
	c.state.Ordering = make([]domain.OrderBy, 0, len(fields))
	for _, f := range fields {
		c.state.Ordering = append(c.state.Ordering, domain.ParseOrdering(f))
	}
	return c
}

// Limit caps the number of rows.
func (qs *QuerySet) Limit(n int) *QuerySet {
	c := qs.clone()
	c.state.Limit = &n
	return c
}

// Offset skips n rows.
func (qs *QuerySet) Offset(n int) *QuerySet {
	c := qs.clone()
	c.state.Offset = &n
	return c
}

// Slice applies Python-style [start:stop] bounds; nil leaves a bound open.
// A stop before start yields an empty window.
func (qs *QuerySet) Slice(start, stop *int) *QuerySet {
	c := qs.clone()
	from := 0
	if start != nil {
		from = *start
		c.state.Offset = &from
	}
	if stop != nil {
		n := max(*stop-from, 0)
		c.state.Limit = &n
	}
	return c
}

// Distinct removes duplicate rows.
func (qs *QuerySet) Distinct() *QuerySet {
	c := qs.clone()
	c.state.Distinct = true
	return c
}

// Values switches to projection mode: rows come back raw, keyed by
// column. With no fields every declared column is selected.
func (qs *QuerySet) Values(fields ...string) *QuerySet {
	c := qs.clone()
	if len(fields) == 0 {
		fields = qs.columns()
	}
	c.state.Projection = append([]string{}, fields...)
	return c
}

func (qs *QuerySet) columns() []string {
	cols := make([]string, len(qs.model.Fields))
	for i, f := range qs.model.Fields {
		cols[i] = f.ColumnName()
	}
	return cols
}

// Statement synthesizes the SELECT this query set would run.
func (qs *QuerySet) Statement() compiler.Statement {
	return compiler.Select(qs.state)
}

// String returns the SQL text.
func (qs *QuerySet) String() string {
	return qs.Statement().SQL
}

func (qs *QuerySet) fetch(ctx context.Context) ([]domain.Row, error) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if qs.loaded {
		return qs.rows, nil
	}
	st := qs.Statement()
	rows, err := qs.conn.Query(ctx, st.SQL, st.Params...)
	if err != nil {
		return nil, err
	}
	qs.rows, qs.loaded = rows, true
	return rows, nil
}

func (qs *QuerySet) record(row domain.Row) (Record, error) {
	rec := make(Record, len(row))
	if qs.state.Projection != nil {
		for k, v := range row {
			rec[k] = v
		}
		return rec, nil
	}
	for col, v := range row {
		f, ok := qs.model.Field(col)
		if !ok {
			rec[col] = v
			continue
		}
		converted, err := f.FromDB(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", qs.model.Name, f.Name, err)
		}
		rec[f.Name] = converted
	}
	return rec, nil
}

func (qs *QuerySet) records(rows []domain.Row) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := qs.record(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
