package builder

import (
	"context"
	"sort"
	"strings"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/compiler"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Rows evaluates the query and returns the raw rows. The result is cached
// on this query set.
func (qs *QuerySet) Rows(ctx context.Context) ([]domain.Row, error) {
	return qs.fetch(ctx)
}

// All evaluates the query and returns its records.
func (qs *QuerySet) All(ctx context.Context) ([]Record, error) {
	rows, err := qs.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return qs.records(rows)
}

// Each calls fn for every record, stopping at the first error.
func (qs *QuerySet) Each(ctx context.Context, fn func(Record) error) error {
	rows, err := qs.fetch(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		rec, err := qs.record(row)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the single record matching conds.
func (qs *QuerySet) Get(ctx context.Context, conds ...domain.Condition) (Record, error) {
	c := qs
	if len(conds) > 0 {
		c = qs.Filter(conds...)
	}
	if c.state.Limit == nil || *c.state.Limit > 2 {
		if c == qs {
			c = qs.clone()
		}
		two := 2
		c.state.Limit = &two
	}

	rows, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		st := c.Statement()
		return nil, errs.New(errs.ErrNotFound, "get", "%s matching query does not exist", qs.model.Name).WithStatement(st.SQL, st.Params)
	case 1:
		return c.record(rows[0])
	default:
		st := c.Statement()
		return nil, errs.New(errs.ErrMultipleFound, "get", "get() returned more than one %s", qs.model.Name).WithStatement(st.SQL, st.Params)
	}
}

// First returns the first record, or false when there is none.
func (qs *QuerySet) First(ctx context.Context) (Record, bool, error) {
	return qs.Limit(1).one(ctx)
}

// Last returns the last record by reversing the ordering, which defaults
// to the primary key.
func (qs *QuerySet) Last(ctx context.Context) (Record, bool, error) {
	c := qs.clone()
	if len(c.state.Ordering) == 0 {
		c.state.Ordering = []domain.OrderBy{{Field: qs.model.PrimaryKeyColumn(), Direction: domain.Desc}}
	} else {
		for i, o := range c.state.Ordering {
			c.state.Ordering[i] = o.Flip()
		}
	}
	one := 1
	c.state.Limit = &one
	return c.one(ctx)
}

func (qs *QuerySet) one(ctx context.Context) (Record, bool, error) {
	rows, err := qs.fetch(ctx)
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	rec, err := qs.record(rows[0])
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Index returns the record at position i.
func (qs *QuerySet) Index(ctx context.Context, i int) (Record, error) {
	if i < 0 {
		st := qs.Statement()
		return nil, errs.New(errs.ErrIndexOutOfRange, "index", "negative index %d", i).WithStatement(st.SQL, st.Params)
	}
	c := qs.Offset(i).Limit(1)
	rec, ok, err := c.one(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		st := c.Statement()
		return nil, errs.New(errs.ErrIndexOutOfRange, "index", "%s index %d out of range", qs.model.Name, i).WithStatement(st.SQL, st.Params)
	}
	return rec, nil
}

// Count returns the number of matching rows, ignoring ordering and slicing.
func (qs *QuerySet) Count(ctx context.Context) (int64, error) {
	st := compiler.Count(qs.state)
	rows, err := qs.conn.Query(ctx, st.SQL, st.Params...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, v := range rows[0] {
		n, err := schema.IntegerField("count").FromDB(v)
		if err != nil {
			return 0, errs.Wrap(errs.ErrQuery, "count", err).WithStatement(st.SQL, st.Params)
		}
		return n.(int64), nil
	}
	return 0, nil
}

// Len is Count.
func (qs *QuerySet) Len(ctx context.Context) (int64, error) {
	return qs.Count(ctx)
}

// Exists reports whether at least one row matches.
func (qs *QuerySet) Exists(ctx context.Context) (bool, error) {
	st := compiler.Exists(qs.state)
	rows, err := qs.conn.Query(ctx, st.SQL, st.Params...)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Update sets the given fields on every matching row and returns the
// number of rows changed.
func (qs *QuerySet) Update(ctx context.Context, values map[string]any) (int64, error) {
	var unknown []string
	for name := range values {
		if _, ok := qs.model.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return 0, errs.New(errs.ErrUnknownField, "update", "%s has no field %s",
			qs.model.Name, strings.Join(unknown, ", "))
	}
	if len(values) == 0 {
		return 0, nil
	}

	set := make([]compiler.Assignment, 0, len(values))
	for _, f := range qs.model.Fields {
		v, ok := values[f.Name]
		if !ok {
			if v, ok = values[f.ColumnName()]; !ok {
				continue
			}
		}
		dbv, err := f.ToDB(v)
		if err != nil {
			return 0, errs.Wrap(errs.ErrQuery, "update", err)
		}
		set = append(set, compiler.Assignment{Column: f.ColumnName(), Value: dbv})
	}

	st := compiler.Update(qs.state, set)
	res, err := qs.conn.Exec(ctx, st.SQL, st.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes every matching row. A query set without filters or
// excludes is refused before anything is sent.
func (qs *QuerySet) Delete(ctx context.Context) (int64, error) {
	if !qs.state.Filtered() {
		return 0, errs.New(errs.ErrQuery, "delete", "refusing to delete every row of %s; add a filter", qs.model.Table)
	}
	st := compiler.Delete(qs.state)
	res, err := qs.conn.Exec(ctx, st.SQL, st.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ValuesList returns rows as tuples in the order of fields. With no
// fields every declared column is returned.
func (qs *QuerySet) ValuesList(ctx context.Context, fields ...string) ([][]any, error) {
	c := qs
	if len(fields) > 0 || qs.state.Projection == nil {
		c = qs.Values(fields...)
	}
	cols := c.state.Projection
	rows, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		tuple := make([]any, len(cols))
		for j, col := range cols {
			tuple[j] = row[col]
		}
		out[i] = tuple
	}
	return out, nil
}

// Flat returns a single column as a flat list.
func (qs *QuerySet) Flat(ctx context.Context, field string) ([]any, error) {
	tuples, err := qs.ValuesList(ctx, field)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(tuples))
	for i, t := range tuples {
		out[i] = t[0]
	}
	return out, nil
}

// Columns lists the model's columns in declaration order.
func (qs *QuerySet) Columns() []string {
	return qs.columns()
}
