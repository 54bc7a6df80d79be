package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

func TestBuildDependencyTree(t *testing.T) {
	posts, q := blogQuery("comments", "comments.author", "tags", "author")

	root, err := BuildDependencyTree(posts, q.ColumnMap(), q.Relationships())
	require.NoError(t, err)

	assert.Equal(t, "", root.Alias)
	assert.Equal(t, []int{0}, root.KeyPos)
	require.Len(t, root.Children, 3)

	comments := root.Children[0]
	assert.Equal(t, "comments", comments.Field)
	assert.Equal(t, 1, comments.Group)
	assert.Equal(t, model.HasMany, comments.Relation.Type)
	require.Len(t, comments.Children, 1)
	assert.Equal(t, "comments.author", comments.Children[0].Alias)
	assert.Equal(t, "author", comments.Children[0].Field)

	tags := root.Children[1]
	assert.Equal(t, []int{0, 1}, tags.KeyPos)
	assert.Equal(t, []string{"post_id", "tag"}, tags.KeyNames)

	assert.Equal(t, "author", root.Children[2].Field)
	assert.Equal(t, model.BelongsTo, root.Children[2].Relation.Type)
}

func TestBuildDependencyTreeErrors(t *testing.T) {
	posts, q := blogQuery("comments", "comments.author")

	tests := []struct {
		name    string
		root    model.Model
		columns ir.ColumnMap
		want    string
	}{
		{
			name:    "no root model",
			columns: q.ColumnMap(),
			want:    "root model is required",
		},
		{
			name:    "no root group",
			root:    posts,
			columns: ir.ColumnMap{{Alias: "comments", Fields: []string{"id"}}},
			want:    "no root group",
		},
		{
			name:    "unknown alias",
			root:    posts,
			columns: ir.ColumnMap{{Alias: "", Fields: []string{"id"}}, {Alias: "likes", Fields: []string{"id"}}},
			want:    "no relationship",
		},
		{
			name:    "root key not selected",
			root:    posts,
			columns: ir.ColumnMap{{Alias: "", Fields: []string{"title"}}},
			want:    `key field "id"`,
		},
		{
			name:    "hasMany key not selected",
			root:    posts,
			columns: ir.ColumnMap{{Alias: "", Fields: []string{"id"}}, {Alias: "comments", Fields: []string{"body"}}},
			want:    `key field "id" of comments`,
		},
		{
			name:    "parent not selected",
			root:    posts,
			columns: ir.ColumnMap{{Alias: "", Fields: []string{"id"}}, {Alias: "comments.author", Fields: []string{"id"}}},
			want:    `parent path "comments"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDependencyTree(tt.root, tt.columns, q.Relationships())
			require.Error(t, err)
			assert.True(t, IsDependencyError(err))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestBuildDependencyTreeToOneWithoutKey(t *testing.T) {
	posts, q := blogQuery("author")
	columns := ir.ColumnMap{{Alias: "", Fields: []string{"id"}}, {Alias: "author", Fields: []string{"name"}}}

	root, err := BuildDependencyTree(posts, columns, q.Relationships())
	require.NoError(t, err)
	assert.Empty(t, root.Children[0].KeyPos)
}
