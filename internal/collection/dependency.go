package collection

import (
	"fmt"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// DependencyNode is one relationship path of a query, with the row layout
// needed to hydrate it. The tree is built once per query.
type DependencyNode struct {
	// Alias is the relationship path ("" for the root).
	Alias string

	// Field is the entity field the node's entities are assigned to on the
	// parent entity. Empty for the root.
	Field string

	// Group is the node's column group index within a segmented row.
	Group int

	// Fields are the node's field names in row order.
	Fields []string

	// KeyPos are the positions of the model's key fields within Fields;
	// KeyNames are the matching names. Empty when the key is not selected.
	KeyPos   []int
	KeyNames []string

	Model    model.Model
	Relation model.Relationship // zero for the root

	Children []*DependencyNode
}

// Key extracts the node's key from its group of a segmented row.
func (n *DependencyNode) Key(row ir.Segmented) ir.Key {
	return row[n.Group].KeyAt(n.KeyPos, n.KeyNames)
}

// BuildDependencyTree derives the dependency tree from a column map.
// Children are ordered as their groups appear in the column map. The root
// and every hasMany path must select their model's key fields, since group
// boundaries are detected by key changes.
func BuildDependencyTree(root model.Model, columns ir.ColumnMap, rels map[string]model.Relationship) (*DependencyNode, error) {
	if root == nil {
		return nil, &DependencyError{Alias: "", Message: "root model is required"}
	}
	if err := columns.Validate(); err != nil {
		return nil, &DependencyError{Alias: "", Message: err.Error()}
	}

	nodes := make(map[string]*DependencyNode, len(columns))
	for i, g := range columns {
		node := &DependencyNode{
			Alias:  g.Alias,
			Group:  i,
			Fields: g.Fields,
		}
		if g.Alias == "" {
			node.Model = root
		} else {
			rel, ok := rels[g.Alias]
			if !ok {
				return nil, &DependencyError{Alias: g.Alias, Message: "no relationship for alias"}
			}
			if rel.To == nil {
				return nil, &DependencyError{Alias: g.Alias, Message: "relationship has no related model"}
			}
			node.Model = rel.To
			node.Relation = rel
			node.Field = rel.Field()
		}

		keyed := g.Alias == "" || node.Relation.Type == model.HasMany
		pos, names, err := keyPositions(node.Model, g.Fields)
		if err != nil && keyed {
			return nil, &DependencyError{Alias: g.Alias, Message: err.Error()}
		}
		node.KeyPos, node.KeyNames = pos, names
		nodes[g.Alias] = node
	}

	for _, g := range columns {
		if g.Alias == "" {
			continue
		}
		parent, ok := nodes[ir.ParentAlias(g.Alias)]
		if !ok {
			return nil, &DependencyError{Alias: g.Alias, Message: fmt.Sprintf("parent path %q is not selected", ir.ParentAlias(g.Alias))}
		}
		parent.Children = append(parent.Children, nodes[g.Alias])
	}
	return nodes[""], nil
}

// keyPositions locates the model's key fields within a group.
func keyPositions(m model.Model, fields []string) ([]int, []string, error) {
	keyFields := m.KeyFields()
	if len(keyFields) == 0 {
		return nil, nil, fmt.Errorf("model %s has no key fields", m.Name())
	}
	pos := make([]int, len(keyFields))
	for i, kf := range keyFields {
		pos[i] = -1
		for j, f := range fields {
			if f == kf {
				pos[i] = j
				break
			}
		}
		if pos[i] < 0 {
			return nil, nil, fmt.Errorf("key field %q of %s is not selected", kf, m.Name())
		}
	}
	return pos, append([]string(nil), keyFields...), nil
}
