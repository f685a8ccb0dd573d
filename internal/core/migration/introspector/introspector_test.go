package introspector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/core/migration/introspector"
	"github.com/baseorm/baseorm/internal/core/schema"
)

func setup(t *testing.T) *database.Connection {
	t.Helper()
	ctx := context.Background()
	c, err := database.Open(ctx, "default", database.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	for _, stmt := range []string{
		`CREATE TABLE "authors" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" VARCHAR(100) NOT NULL, "rating" REAL DEFAULT 0.5)`,
		`CREATE TABLE "blog_posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" TEXT DEFAULT 'untitled', "author_id" INTEGER NOT NULL REFERENCES "authors"("id") ON DELETE CASCADE)`,
		`CREATE TABLE "_migrations" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" VARCHAR(255))`,
	} {
		_, err := c.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return c
}

func TestListTablesSkipsInternal(t *testing.T) {
	c := setup(t)
	names, err := introspector.New(c).ListTables(context.Background())
	require.NoError(t, err)
	// sqlite_sequence exists because of AUTOINCREMENT
	assert.Equal(t, []string{"authors", "blog_posts"}, names)
}

func TestUnderscoreTablesAreReported(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	_, err := c.Exec(ctx, `CREATE TABLE "_audit" ("id" INTEGER PRIMARY KEY, "note" TEXT)`)
	require.NoError(t, err)

	names, err := introspector.New(c).ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"_audit", "authors", "blog_posts"}, names)

	catalog, err := introspector.New(c).Inspect(ctx)
	require.NoError(t, err)
	_, ok := catalog.Table("_audit")
	assert.True(t, ok)
}

func TestInspect(t *testing.T) {
	c := setup(t)
	catalog, err := introspector.New(c).Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog.Tables, 2)

	authors, ok := catalog.Table("authors")
	require.True(t, ok)
	assert.True(t, authors.HasColumn("name"))
	assert.False(t, authors.HasColumn("email"))
	require.Len(t, authors.Columns, 3)
	assert.True(t, authors.Columns[0].PrimaryKey)
	assert.True(t, authors.Columns[1].NotNull)
	assert.Equal(t, "VARCHAR(100)", authors.Columns[1].Type)
	require.NotNil(t, authors.Columns[2].Default)
	assert.Equal(t, "0.5", *authors.Columns[2].Default)

	posts, ok := catalog.Table("blog_posts")
	require.True(t, ok)
	fk, ok := posts.ForeignKey("author_id")
	require.True(t, ok)
	assert.Equal(t, "authors", fk.Table)
	assert.Equal(t, "CASCADE", fk.OnDelete)

	_, ok = catalog.Table("_migrations")
	assert.False(t, ok)
}

func TestModels(t *testing.T) {
	c := setup(t)
	catalog, err := introspector.New(c).Inspect(context.Background())
	require.NoError(t, err)

	models := introspector.Models(catalog)
	require.Len(t, models, 2)

	post := models[1]
	assert.Equal(t, "BlogPosts", post.Name)
	assert.Equal(t, "blog_posts", post.Table)
	require.NoError(t, post.Validate())

	title, ok := post.Field("title")
	require.True(t, ok)
	assert.Equal(t, schema.Text, title.Type)
	assert.Equal(t, "untitled", title.Default)

	author, ok := post.Field("author_id")
	require.True(t, ok)
	assert.Equal(t, schema.ForeignKey, author.Type)
	assert.Equal(t, "authors", author.References)
	assert.Equal(t, `INTEGER NOT NULL REFERENCES "authors"("id") ON DELETE CASCADE`, author.Definition())

	name, ok := models[0].Field("name")
	require.True(t, ok)
	assert.Equal(t, schema.Char, name.Type)
	assert.Equal(t, 100, name.MaxLength)
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "BlogPosts", introspector.ModelName("blog_posts"))
	assert.Equal(t, "Users", introspector.ModelName("users"))
	assert.Equal(t, "X", introspector.ModelName("_x"))
}
