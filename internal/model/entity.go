package model

import (
	"sort"

	"github.com/roach88/rowgraph/internal/ir"
)

// Entity is a hydrated record: scalar field data, related sub-entities and
// an existence flag.
type Entity struct {
	model  Model
	data   map[string]ir.Value
	one    map[string]*Entity
	many   map[string][]*Entity
	exists bool
}

// NewEntity creates an entity owned by m (which may be nil).
// data is copied.
func NewEntity(m Model, data map[string]ir.Value, exists bool) *Entity {
	cp := make(map[string]ir.Value, len(data))
	for k, v := range data {
		if v == nil {
			v = ir.Null{}
		}
		cp[k] = v
	}
	return &Entity{model: m, data: cp, exists: exists}
}

// Model returns the owning model, or nil.
func (e *Entity) Model() Model {
	return e.model
}

// Exists reports whether the entity was hydrated from (or saved to) a source.
func (e *Entity) Exists() bool {
	return e.exists
}

// SetExists updates the existence flag.
func (e *Entity) SetExists(exists bool) {
	e.exists = exists
}

// Get returns a scalar field.
func (e *Entity) Get(field string) (ir.Value, bool) {
	v, ok := e.data[field]
	return v, ok
}

// Set assigns a scalar field.
func (e *Entity) Set(field string, v ir.Value) {
	if v == nil {
		v = ir.Null{}
	}
	e.data[field] = v
}

// Fields returns the scalar field names in sorted order.
func (e *Entity) Fields() []string {
	names := make([]string, 0, len(e.data))
	for k := range e.data {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Data returns a copy of the scalar fields.
func (e *Entity) Data() map[string]ir.Value {
	cp := make(map[string]ir.Value, len(e.data))
	for k, v := range e.data {
		cp[k] = v
	}
	return cp
}

// Key returns the entity's primary key per its model; the zero key when
// the entity has no model.
func (e *Entity) Key() ir.Key {
	if e.model == nil {
		return ir.Key{}
	}
	return e.model.Key(e.data)
}

// SetOne assigns a to-one related entity. A nil related entity records that
// the relationship was hydrated and found nothing.
func (e *Entity) SetOne(field string, related *Entity) {
	if e.one == nil {
		e.one = make(map[string]*Entity)
	}
	e.one[field] = related
}

// One returns a to-one related entity; ok is false when the relationship was
// never hydrated.
func (e *Entity) One(field string) (related *Entity, ok bool) {
	related, ok = e.one[field]
	return related, ok
}

// SetMany assigns a to-many related sequence. nil is stored as empty.
func (e *Entity) SetMany(field string, related []*Entity) {
	if e.many == nil {
		e.many = make(map[string][]*Entity)
	}
	if related == nil {
		related = []*Entity{}
	}
	e.many[field] = related
}

// Many returns a to-many related sequence; ok is false when the relationship
// was never hydrated.
func (e *Entity) Many(field string) (related []*Entity, ok bool) {
	related, ok = e.many[field]
	return related, ok
}

// Relations returns the names of hydrated relationship fields, sorted.
func (e *Entity) Relations() []string {
	names := make([]string, 0, len(e.one)+len(e.many))
	for k := range e.one {
		names = append(names, k)
	}
	for k := range e.many {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Value returns the entity and its related entities as a nested ir.Object.
// A missing to-one relation is Null; a to-many relation is an Array.
func (e *Entity) Value() ir.Object {
	obj := make(ir.Object, len(e.data)+len(e.one)+len(e.many))
	for k, v := range e.data {
		obj[k] = v
	}
	for k, rel := range e.one {
		if rel == nil {
			obj[k] = ir.Null{}
			continue
		}
		obj[k] = rel.Value()
	}
	for k, rels := range e.many {
		arr := make(ir.Array, len(rels))
		for i, rel := range rels {
			arr[i] = rel.Value()
		}
		obj[k] = arr
	}
	return obj
}

// ToMap returns the nested entity as plain Go data.
func (e *Entity) ToMap() map[string]any {
	return ir.Native(e.Value()).(map[string]any)
}
