package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	users := ModelSpec{Name: "users", Key: []string{"id"}, Fields: []string{"id", "name"}}

	tests := []struct {
		name   string
		schema Schema
		want   []string
	}{
		{
			name:   "valid",
			schema: Schema{Models: []ModelSpec{users}},
			want:   []string{},
		},
		{
			name:   "bad name",
			schema: Schema{Models: []ModelSpec{{Name: "drop table", Key: []string{"id"}, Fields: []string{"id"}}}},
			want:   []string{ErrModelName},
		},
		{
			name:   "duplicate model",
			schema: Schema{Models: []ModelSpec{users, users}},
			want:   []string{ErrModelName},
		},
		{
			name:   "key not a field",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"uid"}, Fields: []string{"id"}}}},
			want:   []string{ErrModelKey},
		},
		{
			name:   "bad field and table",
			schema: Schema{Models: []ModelSpec{{Name: "a", Table: "a;b", Key: []string{"id"}, Fields: []string{"id", "x-y", "id"}}}},
			want:   []string{ErrInvalidIdent, ErrInvalidIdent, ErrDuplicateField},
		},
		{
			name: "unknown relation type",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"id"}, Fields: []string{"id"},
				Relations: []RelationSpec{{Name: "b", Type: "manyToMany", Model: "users"}}}, users}},
			want: []string{ErrRelationType},
		},
		{
			name: "unknown target",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"id"}, Fields: []string{"id"},
				Relations: []RelationSpec{{Name: "b", Type: "hasMany", Model: "ghosts", Foreign: "a_id"}}}}},
			want: []string{ErrRelationTarget},
		},
		{
			name: "hasMany without foreign",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"id"}, Fields: []string{"id"},
				Relations: []RelationSpec{{Name: "people", Type: "hasMany", Model: "users"}}}, users}},
			want: []string{ErrRelationRequired},
		},
		{
			name: "foreign column missing",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"id"}, Fields: []string{"id"},
				Relations: []RelationSpec{{Name: "people", Type: "hasMany", Model: "users", Foreign: "a_id"}}}, users}},
			want: []string{ErrRelationColumn},
		},
		{
			name: "belongsTo without local",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"id"}, Fields: []string{"id", "user_id"},
				Relations: []RelationSpec{{Name: "user", Type: "belongsTo", Model: "users"}}}, users}},
			want: []string{ErrRelationRequired},
		},
		{
			name: "composite owner needs explicit local",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"x", "y"}, Fields: []string{"x", "y"},
				Relations: []RelationSpec{{Name: "people", Type: "hasMany", Model: "users", Foreign: "name"}}}, users}},
			want: []string{ErrRelationRequired},
		},
		{
			name: "relation collides with field",
			schema: Schema{Models: []ModelSpec{{Name: "a", Key: []string{"id"}, Fields: []string{"id", "user"},
				Relations: []RelationSpec{{Name: "user", Type: "belongsTo", Model: "users", Local: "id"}}}, users}},
			want: []string{ErrDuplicateField},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.schema)))
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "posts.key", Message: "required", Code: ErrModelKey}
	assert.Equal(t, "[E203] posts.key: required", err.Error())
}
