package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowgraph/internal/ir"
)

func TestParseRelationType(t *testing.T) {
	tests := []struct {
		input string
		want  RelationType
	}{
		{"hasOne", HasOne},
		{"has_one", HasOne},
		{"belongsTo", BelongsTo},
		{"BELONGS_TO", BelongsTo},
		{"hasMany", HasMany},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelationType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.ToOne(), got != HasMany)
		})
	}

	_, err := ParseRelationType("manyToMany")
	assert.Error(t, err)
}

func TestRelationshipField(t *testing.T) {
	assert.Equal(t, "comments", Relationship{Name: "comments"}.Field())
	assert.Equal(t, "replies", Relationship{Name: "comments", FieldName: "replies"}.Field())
}

func TestLoadSchemaYAML(t *testing.T) {
	reg, err := LoadSchema(filepath.Join("testdata", "blog.yaml"))
	require.NoError(t, err)

	names := []string{}
	for _, d := range reg.Models() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"posts", "comments", "users", "post_tags"}, names)

	posts := reg.MustModel("posts")
	assert.Equal(t, "posts", posts.Table())
	assert.Equal(t, []string{"id"}, posts.KeyFields())

	comments, ok := posts.Relationship("comments")
	require.True(t, ok)
	assert.Equal(t, HasMany, comments.Type)
	assert.Equal(t, "id", comments.Local)
	assert.Equal(t, "post_id", comments.Foreign)
	assert.Same(t, reg.MustModel("comments"), comments.To)

	author, ok := reg.MustModel("comments").Relationship("author")
	require.True(t, ok)
	assert.Equal(t, BelongsTo, author.Type)
	assert.Equal(t, "author_id", author.Local)
	assert.Equal(t, "id", author.Foreign)

	assert.Len(t, posts.Relationships(), 2)
	assert.Equal(t, []string{"post_id", "tag"}, reg.MustModel("post_tags").KeyFields())
}

func TestLoadSchemaCUE(t *testing.T) {
	reg, err := LoadSchema(filepath.Join("testdata", "blog.cue"))
	require.NoError(t, err)

	comments, ok := reg.Model("comments")
	require.True(t, ok)
	assert.Equal(t, "post_comments", comments.Table())
	assert.True(t, comments.HasField("body"))
	assert.False(t, comments.HasField("author_id"))
}

func TestLoadSchemaErrors(t *testing.T) {
	_, err := LoadSchema(filepath.Join("testdata", "missing.yaml"))
	assert.ErrorContains(t, err, "read schema")

	_, err = LoadSchema(filepath.Join("testdata", "broken.cue"))
	require.Error(t, err)
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "cue", se.Field)

	_, err = LoadSchema("model.go")
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestParseYAMLError(t *testing.T) {
	_, err := ParseYAML([]byte("models: [\n"))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "yaml", se.Field)
}

func TestNewRegistryRejectsInvalidSchema(t *testing.T) {
	_, err := NewRegistry(Schema{Models: []ModelSpec{{Name: "posts"}}})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.ErrorContains(t, err, ErrModelNoFields)
	assert.ErrorContains(t, err, ErrModelKey)
}

func TestDefinitionCreateAndKey(t *testing.T) {
	reg, err := NewRegistry(Schema{Models: []ModelSpec{
		{Name: "post_tags", Key: []string{"post_id", "tag"}, Fields: []string{"post_id", "tag"}},
	}})
	require.NoError(t, err)
	def := reg.MustModel("post_tags")

	e := def.Create(map[string]ir.Value{"post_id": ir.Int(1), "tag": ir.String("go")}, CreateOptions{Exists: true})
	assert.True(t, e.Exists())
	assert.Same(t, def, e.Model())
	assert.True(t, e.Key().Equal(ir.CompositeKey(ir.Object{"tag": ir.String("go"), "post_id": ir.Int(1)})))
}

func TestRegistryMustModelPanics(t *testing.T) {
	reg, err := NewRegistry(Schema{})
	require.NoError(t, err)
	assert.Panics(t, func() { reg.MustModel("nope") })
}
