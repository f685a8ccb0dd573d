package builder_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/builder"
	"github.com/baseorm/baseorm/internal/core/query/compiler"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/schema"
)

type fakeConn struct {
	queries  []compiler.Statement
	execs    []compiler.Statement
	rows     []domain.Row
	affected int64
}

func (f *fakeConn) Query(_ context.Context, query string, args ...any) ([]domain.Row, error) {
	f.queries = append(f.queries, compiler.Statement{SQL: query, Params: args})
	return f.rows, nil
}

func (f *fakeConn) Exec(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, compiler.Statement{SQL: query, Params: args})
	return driver.RowsAffected(f.affected), nil
}

func userModel() *schema.Model {
	return schema.NewModel("User",
		schema.CharField("name", 100),
		schema.IntegerField("age"),
		schema.CharField("status", 20),
		schema.BooleanField("active"),
		schema.DateTimeField("created_at", schema.AutoNowAdd()),
	)
}

func intp(n int) *int { return &n }

func TestChainingIsImmutable(t *testing.T) {
	base := builder.New(userModel(), &fakeConn{})

	adults := base.Filter(builder.Where("age__gte", 18))
	active := adults.Exclude(builder.Where("status", "banned")).OrderBy("-created_at").Limit(10)

	assert.Equal(t, `SELECT * FROM "users"`, base.String())
	assert.Equal(t, `SELECT * FROM "users" WHERE "age" >= ?`, adults.String())
	assert.Equal(t,
		`SELECT * FROM "users" WHERE "age" >= ? AND NOT ("status" = ?) ORDER BY "created_at" DESC LIMIT 10`,
		active.String())
	assert.Equal(t, []any{18, "banned"}, active.Statement().Params)
	assert.Empty(t, base.State().Filters)
	assert.Len(t, adults.State().Filters, 1)
	assert.Empty(t, adults.State().Excludes)
}

func TestOrderByReplaces(t *testing.T) {
	qs := builder.New(userModel(), &fakeConn{}).OrderBy("name").OrderBy("-age", "name")
	assert.Equal(t, `SELECT * FROM "users" ORDER BY "age" DESC, "name" ASC`, qs.String())
}

func TestDistinctAndValues(t *testing.T) {
	qs := builder.New(userModel(), &fakeConn{}).Values("status").Distinct()
	assert.Equal(t, `SELECT DISTINCT "status" FROM "users"`, qs.String())

	all := builder.New(userModel(), &fakeConn{}).Values()
	assert.Equal(t, `SELECT "id", "name", "age", "status", "active", "created_at" FROM "users"`, all.String())
}

func TestSlice(t *testing.T) {
	qs := builder.New(userModel(), &fakeConn{})

	assert.Equal(t, `SELECT * FROM "users" LIMIT 5 OFFSET 5`, qs.Slice(intp(5), intp(10)).String())
	assert.Equal(t, `SELECT * FROM "users" LIMIT 3`, qs.Slice(nil, intp(3)).String())
	assert.Equal(t, `SELECT * FROM "users" LIMIT -1 OFFSET 2`, qs.Slice(intp(2), nil).String())
	assert.Equal(t, `SELECT * FROM "users" LIMIT 0 OFFSET 4`, qs.Slice(intp(4), intp(1)).String())
}

func TestResultCache(t *testing.T) {
	conn := &fakeConn{rows: []domain.Row{{"id": int64(1), "name": "Ann"}}}
	qs := builder.New(userModel(), conn).Filter(builder.Where("name", "Ann"))

	first, err := qs.All(context.Background())
	require.NoError(t, err)
	second, err := qs.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, conn.queries, 1)

	_, err = qs.OrderBy("name").All(context.Background())
	require.NoError(t, err)
	assert.Len(t, conn.queries, 2)
}

func TestRecordsAreConverted(t *testing.T) {
	conn := &fakeConn{rows: []domain.Row{{
		"id": int64(1), "name": []byte("Ann"), "active": int64(1), "created_at": "2024-01-02 03:04:05.000000",
	}}}
	recs, err := builder.New(userModel(), conn).All(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, "Ann", recs[0]["name"])
	assert.Equal(t, true, recs[0]["active"])
	assert.Equal(t, 2024, recs[0]["created_at"].(interface{ Year() int }).Year())
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	conn := &fakeConn{}
	_, err := builder.New(userModel(), conn).Get(ctx, builder.Where("id", 9))
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, `SELECT * FROM "users" WHERE "id" = ? LIMIT 2`, conn.queries[0].SQL)
	query, params, ok := errs.Statement(err)
	require.True(t, ok)
	assert.Equal(t, `SELECT * FROM "users" WHERE "id" = ? LIMIT 2`, query)
	assert.Equal(t, []any{9}, params)

	conn = &fakeConn{rows: []domain.Row{{"id": int64(1)}, {"id": int64(2)}}}
	_, err = builder.New(userModel(), conn).Get(ctx, builder.Where("status", "active"))
	assert.True(t, errs.IsMultipleFound(err))
	query, params, ok = errs.Statement(err)
	require.True(t, ok)
	assert.Equal(t, conn.queries[0].SQL, query)
	assert.Equal(t, []any{"active"}, params)

	conn = &fakeConn{rows: []domain.Row{{"id": int64(1), "age": int64(30)}}}
	rec, err := builder.New(userModel(), conn).Get(ctx, builder.Where("id", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(30), rec["age"])
}

func TestFirstAndLast(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	qs := builder.New(userModel(), conn)

	_, ok, err := qs.First(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, `SELECT * FROM "users" LIMIT 1`, conn.queries[0].SQL)

	_, _, err = qs.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" ORDER BY "id" DESC LIMIT 1`, conn.queries[1].SQL)

	_, _, err = qs.OrderBy("-created_at", "name").Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" ORDER BY "created_at" ASC, "name" DESC LIMIT 1`, conn.queries[2].SQL)

	conn.rows = []domain.Row{{"id": int64(4)}}
	rec, ok, err := qs.First(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), rec["id"])
}

func TestCountAndExists(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{rows: []domain.Row{{"COUNT(*)": int64(3)}}}
	qs := builder.New(userModel(), conn).Filter(builder.Where("active", true)).OrderBy("name").Limit(1)

	n, err := qs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, `SELECT COUNT(*) FROM "users" WHERE "active" = ?`, conn.queries[0].SQL)

	ok, err := qs.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `SELECT 1 FROM "users" WHERE "active" = ? LIMIT 1`, conn.queries[1].SQL)

	conn.rows = nil
	ok, err = qs.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{affected: 2}
	qs := builder.New(userModel(), conn).Filter(builder.Where("age__lt", 18))

	_, err := qs.Update(ctx, map[string]any{"nickname": "x", "status": "minor"})
	assert.True(t, errs.IsUnknownField(err))
	assert.ErrorContains(t, err, "nickname")
	assert.Empty(t, conn.execs)

	n, err := qs.Update(ctx, map[string]any{"active": false, "status": "minor"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, conn.execs, 1)
	assert.Equal(t, `UPDATE "users" SET "status" = ?, "active" = ? WHERE "age" < ?`, conn.execs[0].SQL)
	assert.Equal(t, []any{"minor", 0, 18}, conn.execs[0].Params)
}

func TestDeleteGuard(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{affected: 1}
	qs := builder.New(userModel(), conn)

	_, err := qs.OrderBy("name").Limit(3).Delete(ctx)
	assert.ErrorIs(t, err, errs.ErrQuery)
	assert.Empty(t, conn.execs)
	assert.Empty(t, conn.queries)

	n, err := qs.Exclude(builder.Where("status", "active")).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, `DELETE FROM "users" WHERE NOT ("status" = ?)`, conn.execs[0].SQL)
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	qs := builder.New(userModel(), conn).Filter(builder.Where("age__gte", 18)).OrderBy("id")

	_, err := qs.Index(ctx, 5)
	assert.True(t, errs.IsIndexOutOfRange(err))
	assert.Equal(t, `SELECT * FROM "users" WHERE "age" >= ? ORDER BY "id" ASC LIMIT 1 OFFSET 5`, conn.queries[0].SQL)
	query, params, ok := errs.Statement(err)
	require.True(t, ok)
	assert.Equal(t, conn.queries[0].SQL, query)
	assert.Equal(t, []any{18}, params)

	_, err = qs.Index(ctx, -1)
	assert.True(t, errs.IsIndexOutOfRange(err))
	assert.Len(t, conn.queries, 1)
}

func TestValuesListAndFlat(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{rows: []domain.Row{
		{"name": "Ann", "age": int64(30)},
		{"name": "Bob", "age": int64(25)},
	}}
	qs := builder.New(userModel(), conn)

	tuples, err := qs.ValuesList(ctx, "name", "age")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Ann", int64(30)}, {"Bob", int64(25)}}, tuples)
	assert.Equal(t, `SELECT "name", "age" FROM "users"`, conn.queries[0].SQL)

	names, err := qs.Flat(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", "Bob"}, names)

	raw, err := qs.Values("name").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, builder.Record{"name": "Ann", "age": int64(30)}, raw[0])
}
