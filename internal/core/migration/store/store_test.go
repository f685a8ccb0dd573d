package store_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/adapters/storage"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/migration/domain"
	"github.com/baseorm/baseorm/internal/core/migration/store"
)

var fixed = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func unit() *domain.Migration {
	return &domain.Migration{Name: "20240301_123000_initial", Operations: []domain.Operation{
		&domain.CreateTable{Table: "posts", Columns: []domain.ColumnDef{
			{Name: "id", Definition: "INTEGER PRIMARY KEY AUTOINCREMENT"},
			{Name: "title", Definition: "VARCHAR(200) NOT NULL"},
		}},
		&domain.AddColumn{Table: "authors", Column: "views", Definition: "INTEGER DEFAULT 0"},
		&domain.DropTable{Table: "legacy"},
	}}
}

func TestEncodeGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, store.Encode(&buf, unit(), fixed))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "unit", buf.Bytes())
}

func TestDecodeRestoresOperations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, store.Encode(&buf, unit(), fixed))

	m, err := store.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, unit(), m)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"future format", "format: v2\nname: x\noperations: []\n"},
		{"garbage format", "format: banana\nname: x\noperations: []\n"},
		{"missing name", "format: v1\noperations: []\n"},
		{"empty operation", "format: v1\nname: x\noperations:\n  - {}\n"},
		{"two operations in one entry", "format: v1\nname: x\noperations:\n  - drop_table: {table: a}\n    create_table: {table: b}\n"},
		{"unknown operation", "format: v1\nname: x\noperations:\n  - rename_table: {table: a}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Decode(strings.NewReader(tt.doc))
			assert.True(t, errs.IsMigration(err), "%v", err)
		})
	}
}

func TestGenerateName(t *testing.T) {
	s := store.New(storage.NewMemory(), "migrations", store.WithClock(clock))

	assert.Equal(t, "20240301_123000_auto", s.GenerateName(""))
	assert.Equal(t, "20240301_123000_add_posts", s.GenerateName("add posts"))
	assert.Equal(t, "20240301_123000_auto", s.GenerateName("!!"))
}

func TestSaveLoadList(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory()
	s := store.New(fs, "migrations", store.WithClock(clock))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	p, err := s.Save(ctx, unit())
	require.NoError(t, err)
	assert.Equal(t, "migrations/20240301_123000_initial.yaml", p)

	second := &domain.Migration{Name: "20240302_000000_more", Operations: []domain.Operation{&domain.DropTable{Table: "x"}}}
	_, err = s.Save(ctx, second)
	require.NoError(t, err)
	require.NoError(t, fs.Write(ctx, "migrations/README.md", []byte("notes")))

	names, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240301_123000_initial", "20240302_000000_more"}, names)

	m, err := s.Load(ctx, "20240301_123000_initial")
	require.NoError(t, err)
	assert.Equal(t, unit(), m)

	ok, err := s.Exists(ctx, "20240302_000000_more")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Load(ctx, "missing")
	assert.True(t, errs.IsMigration(err))
}

func TestLoadRejectsMismatchedName(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory()
	s := store.New(fs, "migrations")

	var buf bytes.Buffer
	require.NoError(t, store.Encode(&buf, unit(), fixed))
	require.NoError(t, fs.Write(ctx, "migrations/renamed.yaml", buf.Bytes()))

	_, err := s.Load(ctx, "renamed")
	assert.True(t, errs.IsMigration(err))
}
