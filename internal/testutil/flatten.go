package testutil

import (
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Flatten turns nested root objects back into the joined rows a LEFT JOIN
// would produce for q, ordered by root.
//
// Sibling hasMany paths are emitted one after another, with the other
// siblings' columns null, instead of as a cartesian product. To-one values
// repeat on every row of their owner. A to-one path with hasMany children
// is not supported.
func Flatten(q *Query, roots []ir.Object) []ir.Row {
	children := make(map[string][]string)
	for _, g := range q.Columns {
		if g.Alias != "" {
			parent := ir.ParentAlias(g.Alias)
			children[parent] = append(children[parent], g.Alias)
		}
	}

	var rows []ir.Row
	for _, root := range roots {
		for _, part := range flattenNode(q, children, "", root) {
			rows = append(rows, assemble(q.Columns, part))
		}
	}
	return rows
}

// partial maps alias → object for one output row.
type partial map[string]ir.Object

func flattenNode(q *Query, children map[string][]string, alias string, obj ir.Object) []partial {
	base := partial{alias: obj}
	var many [][]partial

	for _, child := range children[alias] {
		rel := q.Rels[child]
		value := obj[rel.Field()]
		if rel.Type != model.HasMany {
			sub, ok := value.(ir.Object)
			if !ok {
				continue
			}
			for k, v := range flattenNode(q, children, child, sub)[0] {
				base[k] = v
			}
			continue
		}
		arr, _ := value.(ir.Array)
		var parts []partial
		for _, elem := range arr {
			if sub, ok := elem.(ir.Object); ok {
				parts = append(parts, flattenNode(q, children, child, sub)...)
			}
		}
		if len(parts) > 0 {
			many = append(many, parts)
		}
	}

	if len(many) == 0 {
		return []partial{base}
	}
	var out []partial
	for _, parts := range many {
		for _, p := range parts {
			row := make(partial, len(base)+len(p))
			for k, v := range base {
				row[k] = v
			}
			for k, v := range p {
				row[k] = v
			}
			out = append(out, row)
		}
	}
	return out
}

func assemble(columns ir.ColumnMap, part partial) ir.Row {
	row := make(ir.Row, 0, columns.Width())
	for _, g := range columns {
		obj := part[g.Alias]
		for _, f := range g.Fields {
			v, ok := obj[f]
			if !ok || v == nil {
				v = ir.Null{}
			}
			row = append(row, v)
		}
	}
	return row
}

// Strip removes relationship fields that are not part of q from nested
// objects, so hydrated output can be compared with fixture input.
func Strip(q *Query, obj ir.Object) ir.Object {
	return strip(q, "", obj)
}

func strip(q *Query, alias string, obj ir.Object) ir.Object {
	_, group, _ := q.Columns.Group(alias)
	out := make(ir.Object)
	for _, f := range group.Fields {
		if v, ok := obj[f]; ok {
			out[f] = v
		} else {
			out[f] = ir.Null{}
		}
	}
	for path, rel := range q.Rels {
		if ir.ParentAlias(path) != alias {
			continue
		}
		switch v := obj[rel.Field()].(type) {
		case ir.Object:
			out[rel.Field()] = strip(q, path, v)
		case ir.Array:
			arr := make(ir.Array, len(v))
			for i, elem := range v {
				arr[i] = strip(q, path, elem.(ir.Object))
			}
			out[rel.Field()] = arr
		default:
			if rel.Type == model.HasMany {
				out[rel.Field()] = ir.Array{}
			} else {
				out[rel.Field()] = ir.Null{}
			}
		}
	}
	return out
}
