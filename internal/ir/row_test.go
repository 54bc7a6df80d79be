package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blogColumns() ColumnMap {
	return ColumnMap{
		{Alias: "", Fields: []string{"id", "title"}},
		{Alias: "comments", Fields: []string{"id", "post_id", "body"}},
		{Alias: "comments.author", Fields: []string{"id", "name"}},
	}
}

func TestColumnMapBasics(t *testing.T) {
	cm := blogColumns()

	assert.Equal(t, []string{"", "comments", "comments.author"}, cm.Aliases())
	assert.Equal(t, 7, cm.Width())
	require.NoError(t, cm.Validate())

	idx, group, ok := cm.Group("comments")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"id", "post_id", "body"}, group.Fields)

	_, _, ok = cm.Group("tags")
	assert.False(t, ok)
}

func TestColumnMapValidate(t *testing.T) {
	dup := ColumnMap{{Alias: ""}, {Alias: "a"}, {Alias: "a"}}
	assert.ErrorContains(t, dup.Validate(), "duplicate alias")

	noRoot := ColumnMap{{Alias: "a"}}
	assert.ErrorContains(t, noRoot.Validate(), "no root group")
}

func TestParentAliasAndLastSegment(t *testing.T) {
	assert.Equal(t, "comments", ParentAlias("comments.author"))
	assert.Equal(t, "", ParentAlias("comments"))
	assert.Equal(t, "author", LastSegment("comments.author"))
	assert.Equal(t, "comments", LastSegment("comments"))
}

func TestSegmenter(t *testing.T) {
	seg := NewSegmenter(blogColumns())
	row := Row{Int(1), String("Hello"), Int(10), Int(1), String("first"), Int(7), String("ann")}

	parts, err := seg.Segment(row)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, Row{Int(1), String("Hello")}, parts[0])
	assert.Equal(t, Row{Int(10), Int(1), String("first")}, parts[1])
	assert.Equal(t, Row{Int(7), String("ann")}, parts[2])

	fields := seg.Fields(2, parts[2])
	assert.Equal(t, map[string]Value{"id": Int(7), "name": String("ann")}, fields)
}

func TestSegmenterRejectsWrongWidth(t *testing.T) {
	seg := NewSegmenter(blogColumns())

	_, err := seg.Segment(Row{Int(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRowShape))
}

func TestRowAllEmpty(t *testing.T) {
	assert.True(t, Row{Null{}, Null{}}.AllEmpty())
	assert.True(t, Row{}.AllEmpty())
	assert.False(t, Row{Null{}, Int(0)}.AllEmpty())
}

func TestRowKeyAt(t *testing.T) {
	row := Row{Int(1), Int(9), String("x")}

	assert.True(t, row.KeyAt(nil, nil).IsZero())
	assert.True(t, row.KeyAt([]int{0}, []string{"id"}).Equal(ScalarKey(Int(1))))

	composite := row.KeyAt([]int{1, 0}, []string{"tag_id", "post_id"})
	assert.True(t, composite.Equal(CompositeKey(Object{"post_id": Int(1), "tag_id": Int(9)})))
}
