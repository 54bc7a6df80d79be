package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowgraph/internal/collection"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/queryir"
	"github.com/roach88/rowgraph/internal/testutil"
)

func exportJSON(t *testing.T, c *collection.Collection) string {
	t.Helper()
	arr, err := c.Export()
	require.NoError(t, err)
	data, err := ir.MarshalCanonical(arr)
	require.NoError(t, err)
	return string(data)
}

func field(e *model.Entity, name string) ir.Value {
	v, _ := e.Get(name)
	return v
}

func many(e *model.Entity, name string) []*model.Entity {
	related, _ := e.Many(name)
	return related
}

func TestSelect_HydratesJoinedRows(t *testing.T) {
	s := createBlogStore(t)
	reg := testutil.BlogRegistry()

	c, err := s.Select(context.Background(), reg, queryir.Select{
		Model: "posts",
		With:  []string{"comments", "comments.author", "author"},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"id":1,"title":"Hello","author_id":7,"author":{"id":7,"name":"ann"},"comments":[
			{"id":10,"post_id":1,"author_id":7,"body":"first","author":{"id":7,"name":"ann"}},
			{"id":11,"post_id":1,"author_id":null,"body":"second","author":null}]},
		{"id":2,"title":"World","author_id":null,"author":null,"comments":[
			{"id":20,"post_id":2,"author_id":8,"body":"third","author":{"id":8,"name":"bob"}}]},
		{"id":3,"title":"Empty","author_id":7,"author":{"id":7,"name":"ann"},"comments":[]}
	]`, exportJSON(t, c))
	assert.True(t, c.Closed())
}

func TestSelect_CompositeKeyChildren(t *testing.T) {
	s := createBlogStore(t)
	reg := testutil.BlogRegistry()

	c, err := s.Select(context.Background(), reg, queryir.Select{
		Model: "posts",
		With:  []string{"tags"},
	})
	require.NoError(t, err)

	all, err := c.All()
	require.NoError(t, err)
	require.Len(t, all, 3)

	tags := many(all[0], "tags")
	require.Len(t, tags, 2)
	assert.Equal(t, ir.String("db"), field(tags[0], "tag"))
	assert.Equal(t, ir.String("go"), field(tags[1], "tag"))
	assert.Empty(t, many(all[1], "tags"))
	assert.Len(t, many(all[2], "tags"), 1)
}

func TestSelect_LazyGet(t *testing.T) {
	s := createBlogStore(t)
	reg := testutil.BlogRegistry()

	c, err := s.Select(context.Background(), reg, queryir.Select{
		Model: "posts",
		With:  []string{"comments"},
	})
	require.NoError(t, err)

	post, ok, err := c.Get(ir.ScalarKey(ir.Int(1)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.String("Hello"), field(post, "title"))
	assert.Len(t, many(post, "comments"), 2)
	assert.Equal(t, 1, c.Len(), "only the first root was hydrated")
	assert.False(t, c.Closed())

	require.NoError(t, c.Close())

	// The connection is free again.
	require.NoError(t, s.Exec(context.Background(), "SELECT 1"))
}

func TestSelect_FilterAndLimit(t *testing.T) {
	s := createBlogStore(t)
	reg := testutil.BlogRegistry()
	ctx := context.Background()

	t.Run("filter on nested path", func(t *testing.T) {
		c, err := s.Select(ctx, reg, queryir.Select{
			Model:  "posts",
			With:   []string{"comments", "comments.author"},
			Filter: queryir.Equals{Field: "comments.author.name", Value: ir.String("bob")},
		})
		require.NoError(t, err)
		all, err := c.All()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ir.Int(2), field(all[0], "id"))
	})

	t.Run("limit counts roots", func(t *testing.T) {
		c, err := s.Select(ctx, reg, queryir.Select{
			Model: "posts",
			With:  []string{"comments"},
			Limit: 2,
		})
		require.NoError(t, err)
		all, err := c.All()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Len(t, many(all[0], "comments"), 2)
		assert.Len(t, many(all[1], "comments"), 1)
	})

	t.Run("null filter", func(t *testing.T) {
		c, err := s.Select(ctx, reg, queryir.Select{
			Model:  "posts",
			Filter: queryir.Equals{Field: "author_id", Value: ir.Null{}},
		})
		require.NoError(t, err)
		all, err := c.All()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ir.String("World"), field(all[0], "title"))
	})
}

func TestSelect_Errors(t *testing.T) {
	s := createBlogStore(t)
	reg := testutil.BlogRegistry()

	_, err := s.Select(context.Background(), reg, queryir.Select{Model: "ghosts"})
	assert.ErrorContains(t, err, "select")

	// Table missing from the database but present in the schema.
	require.NoError(t, s.Exec(context.Background(), "DROP TABLE post_tags"))
	_, err = s.Select(context.Background(), reg, queryir.Select{Model: "post_tags"})
	assert.ErrorContains(t, err, "select post_tags")
}
