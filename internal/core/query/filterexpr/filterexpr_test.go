package filterexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/query/filterexpr"
	"github.com/baseorm/baseorm/internal/core/query/lookup"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr string
		want domain.Condition
	}{
		{"age__gte=18", domain.Condition{Field: "age", Operator: lookup.Gte, Value: int64(18)}},
		{"rating=4.5", domain.Condition{Field: "rating", Operator: lookup.Exact, Value: 4.5}},
		{"balance__lt=-10", domain.Condition{Field: "balance", Operator: lookup.Lt, Value: int64(-10)}},
		{"active=true", domain.Condition{Field: "active", Operator: lookup.Exact, Value: true}},
		{"deleted_at__isnull=False", domain.Condition{Field: "deleted_at", Operator: lookup.IsNull, Value: false}},
		{"manager=null", domain.Condition{Field: "manager", Operator: lookup.Exact, Value: nil}},
		{"name__icontains=ann", domain.Condition{Field: "name", Operator: lookup.IContains, Value: "ann"}},
		{`title="hello, world"`, domain.Condition{Field: "title", Operator: lookup.Exact, Value: "hello, world"}},
		{`code="42"`, domain.Condition{Field: "code", Operator: lookup.Exact, Value: "42"}},
		{"created__gte=2024-01-01", domain.Condition{Field: "created", Operator: lookup.Gte, Value: "2024-01-01"}},
		{`status__in=[draft, "in review", 3]`, domain.Condition{Field: "status", Operator: lookup.In, Value: []any{"draft", "in review", int64(3)}}},
		{"id__in=[]", domain.Condition{Field: "id", Operator: lookup.In, Value: []any{}}},
		{"age__range=[18, 65]", domain.Condition{Field: "age", Operator: lookup.Range, Value: []any{int64(18), int64(65)}}},
		{" age = 3 ", domain.Condition{Field: "age", Operator: lookup.Exact, Value: int64(3)}},
		{"word=nan", domain.Condition{Field: "word", Operator: lookup.Exact, Value: "nan"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := filterexpr.Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknownOperatorIsLenient(t *testing.T) {
	got, err := filterexpr.Parse("age__approx=3")
	require.NoError(t, err)
	assert.Equal(t, "age", got.Field)
	assert.False(t, got.Operator.Known())
	assert.Equal(t, "=", got.Operator.SQL())
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{"", "age", "age=", "=3", "a=[1, 2", `a="open`} {
		t.Run(expr, func(t *testing.T) {
			_, err := filterexpr.Parse(expr)
			assert.ErrorIs(t, err, errs.ErrQuery)
		})
	}
}

func TestParseAll(t *testing.T) {
	conds, err := filterexpr.ParseAll([]string{"age__gt=1", "name=bob"})
	require.NoError(t, err)
	require.Len(t, conds, 2)
	assert.Equal(t, "name", conds[1].Field)

	_, err = filterexpr.ParseAll([]string{"age__gt=1", "broken"})
	assert.ErrorIs(t, err, errs.ErrQuery)
}
