package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowgraph/internal/ir"
)

func TestEntityFields(t *testing.T) {
	e := NewEntity(nil, map[string]ir.Value{"id": ir.Int(1), "title": nil}, false)

	v, ok := e.Get("title")
	require.True(t, ok)
	assert.Equal(t, ir.Null{}, v)

	e.Set("body", ir.String("x"))
	assert.Equal(t, []string{"body", "id", "title"}, e.Fields())
	assert.True(t, e.Key().IsZero())

	data := e.Data()
	data["id"] = ir.Int(99)
	got, _ := e.Get("id")
	assert.Equal(t, ir.Int(1), got)

	e.SetExists(true)
	assert.True(t, e.Exists())
}

func TestEntityRelations(t *testing.T) {
	post := NewEntity(nil, map[string]ir.Value{"id": ir.Int(1)}, true)
	author := NewEntity(nil, map[string]ir.Value{"id": ir.Int(7)}, true)
	comment := NewEntity(nil, map[string]ir.Value{"id": ir.Int(10)}, true)
	comment.SetOne("author", author)

	_, ok := post.Many("comments")
	assert.False(t, ok)

	post.SetMany("comments", []*Entity{comment})
	post.SetMany("tags", nil)
	post.SetOne("meta", nil)

	comments, ok := post.Many("comments")
	require.True(t, ok)
	assert.Len(t, comments, 1)

	tags, ok := post.Many("tags")
	require.True(t, ok)
	assert.Empty(t, tags)

	meta, ok := post.One("meta")
	assert.True(t, ok)
	assert.Nil(t, meta)

	assert.Equal(t, []string{"comments", "meta", "tags"}, post.Relations())

	assert.Equal(t, map[string]any{
		"id":   int64(1),
		"meta": nil,
		"tags": []any{},
		"comments": []any{
			map[string]any{"id": int64(10), "author": map[string]any{"id": int64(7)}},
		},
	}, post.ToMap())
}
