package model

import (
	"fmt"

	"github.com/roach88/rowgraph/internal/ir"
)

// Definition is a schema-backed Model: a named table with fields, a primary
// key and declared relationships.
type Definition struct {
	name      string
	table     string
	fields    []string
	key       []string
	relations map[string]Relationship
	relOrder  []string
}

// Name returns the model name.
func (d *Definition) Name() string { return d.name }

// Table returns the backing table name (defaults to the model name).
func (d *Definition) Table() string { return d.table }

// Fields returns the declared scalar fields in declaration order.
func (d *Definition) Fields() []string { return append([]string(nil), d.fields...) }

// KeyFields returns the primary key field names.
func (d *Definition) KeyFields() []string { return append([]string(nil), d.key...) }

// HasField reports whether field is a declared scalar field.
func (d *Definition) HasField(field string) bool {
	for _, f := range d.fields {
		if f == field {
			return true
		}
	}
	return false
}

// Key extracts the primary key from entity data.
func (d *Definition) Key(data map[string]ir.Value) ir.Key {
	return ir.KeyOf(d.key, data)
}

// Create builds an entity owned by this model.
func (d *Definition) Create(data map[string]ir.Value, opts CreateOptions) *Entity {
	return NewEntity(d, data, opts.Exists)
}

// Relationship returns the relationship with the given name.
func (d *Definition) Relationship(name string) (Relationship, bool) {
	r, ok := d.relations[name]
	return r, ok
}

// Relationships returns the declared relationships in declaration order.
func (d *Definition) Relationships() []Relationship {
	out := make([]Relationship, 0, len(d.relOrder))
	for _, name := range d.relOrder {
		out = append(out, d.relations[name])
	}
	return out
}

// Registry holds the models of one schema, with relationships resolved.
type Registry struct {
	models map[string]*Definition
	order  []string
}

// NewRegistry validates the schema and resolves relationship targets.
// Validation failures are returned joined; each one is a ValidationError.
func NewRegistry(schema Schema) (*Registry, error) {
	if errs := Validate(schema); len(errs) > 0 {
		return nil, joinValidation(errs)
	}

	r := &Registry{models: make(map[string]*Definition, len(schema.Models))}
	for _, spec := range schema.Models {
		table := spec.Table
		if table == "" {
			table = spec.Name
		}
		r.models[spec.Name] = &Definition{
			name:      spec.Name,
			table:     table,
			fields:    append([]string(nil), spec.Fields...),
			key:       append([]string(nil), spec.Key...),
			relations: make(map[string]Relationship, len(spec.Relations)),
		}
		r.order = append(r.order, spec.Name)
	}

	for _, spec := range schema.Models {
		owner := r.models[spec.Name]
		for _, rs := range spec.Relations {
			// Validate has already checked type, target and columns.
			typ, _ := ParseRelationType(rs.Type)
			target := r.models[rs.Model]
			rel := Relationship{
				Name:      rs.Name,
				Type:      typ,
				FieldName: rs.Field,
				To:        target,
				Local:     rs.Local,
				Foreign:   rs.Foreign,
			}
			if typ == BelongsTo {
				if rel.Foreign == "" {
					rel.Foreign = target.key[0]
				}
			} else if rel.Local == "" {
				rel.Local = owner.key[0]
			}
			owner.relations[rs.Name] = rel
			owner.relOrder = append(owner.relOrder, rs.Name)
		}
	}
	return r, nil
}

// Model returns the definition with the given name.
func (r *Registry) Model(name string) (*Definition, bool) {
	d, ok := r.models[name]
	return d, ok
}

// MustModel returns the named definition or panics. For fixtures and tests.
func (r *Registry) MustModel(name string) *Definition {
	d, ok := r.models[name]
	if !ok {
		panic(fmt.Sprintf("model: unknown model %q", name))
	}
	return d
}

// Models returns every definition in schema order.
func (r *Registry) Models() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}
