// Package testutil holds shared test fixtures: a blog schema, a query stub
// over it, a flattening helper that turns nested entities back into joined
// rows, a step-counting cursor and deterministic IDs.
package testutil

import (
	"fmt"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// BlogSchema is the schema used across package tests.
//
//	posts ─┬─ comments (hasMany, post_id) ── author (belongsTo users)
//	       ├─ tags (hasMany post_tags, composite key post_id+tag)
//	       └─ author (belongsTo users, author_id)
func BlogSchema() model.Schema {
	return model.Schema{Models: []model.ModelSpec{
		{
			Name:   "posts",
			Key:    []string{"id"},
			Fields: []string{"id", "title", "author_id"},
			Relations: []model.RelationSpec{
				{Name: "comments", Type: "hasMany", Model: "comments", Foreign: "post_id"},
				{Name: "tags", Type: "hasMany", Model: "post_tags", Foreign: "post_id"},
				{Name: "author", Type: "belongsTo", Model: "users", Local: "author_id"},
			},
		},
		{
			Name:   "comments",
			Key:    []string{"id"},
			Fields: []string{"id", "post_id", "author_id", "body"},
			Relations: []model.RelationSpec{
				{Name: "author", Type: "belongsTo", Model: "users", Local: "author_id"},
			},
		},
		{
			Name:   "users",
			Key:    []string{"id"},
			Fields: []string{"id", "name"},
		},
		{
			Name:   "post_tags",
			Key:    []string{"post_id", "tag"},
			Fields: []string{"post_id", "tag"},
		},
	}}
}

// BlogRegistry builds the blog schema registry. Panics on failure.
func BlogRegistry() *model.Registry {
	reg, err := model.NewRegistry(BlogSchema())
	if err != nil {
		panic(fmt.Sprintf("testutil: blog schema: %v", err))
	}
	return reg
}

// Query is a static query description: a column map and the relationship
// behind each non-root alias.
type Query struct {
	Columns ir.ColumnMap
	Rels    map[string]model.Relationship
}

// ColumnMap returns the column map.
func (q *Query) ColumnMap() ir.ColumnMap { return q.Columns }

// Relationships returns the relationships by alias.
func (q *Query) Relationships() map[string]model.Relationship { return q.Rels }

// QueryFor selects root with every declared field, plus the given
// relationship paths ("comments", "comments.author", ...). Paths must be
// listed parents first. Panics on unknown paths.
func QueryFor(root *model.Definition, paths ...string) *Query {
	q := &Query{
		Columns: ir.ColumnMap{{Alias: "", Fields: root.Fields()}},
		Rels:    make(map[string]model.Relationship),
	}
	owners := map[string]*model.Definition{"": root}
	for _, path := range paths {
		owner, ok := owners[ir.ParentAlias(path)]
		if !ok {
			panic(fmt.Sprintf("testutil: parent of %q not selected", path))
		}
		rel, ok := owner.Relationship(ir.LastSegment(path))
		if !ok {
			panic(fmt.Sprintf("testutil: %s has no relationship %q", owner.Name(), ir.LastSegment(path)))
		}
		to := rel.To.(*model.Definition)
		owners[path] = to
		q.Rels[path] = rel
		q.Columns = append(q.Columns, ir.ColumnGroup{Alias: path, Fields: to.Fields()})
	}
	return q
}

// Obj is shorthand for building nested ir.Object fixtures from Go values.
func Obj(m map[string]any) ir.Object {
	return ir.FromNative(m).(ir.Object)
}
