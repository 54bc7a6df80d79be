// Package model describes the entities the collection layer hydrates: the
// Model contract the collections consume, the Entity they produce, and a
// schema-backed Model implementation loaded from YAML or CUE files.
package model

import (
	"fmt"
	"strings"

	"github.com/roach88/rowgraph/internal/ir"
)

// Model is the ORM collaborator a collection hydrates entities through.
type Model interface {
	// Name identifies the model in logs and errors.
	Name() string

	// KeyFields returns the primary key field name(s).
	KeyFields() []string

	// Key extracts the primary key from entity data.
	Key(data map[string]ir.Value) ir.Key

	// Create builds an entity from field data.
	Create(data map[string]ir.Value, opts CreateOptions) *Entity

	// Relationship returns the named relationship, if declared.
	Relationship(name string) (Relationship, bool)
}

// CreateOptions controls entity construction.
type CreateOptions struct {
	// Exists marks the entity as already persisted (hydrated from a source).
	Exists bool
}

// RelationType is the cardinality of a relationship.
type RelationType int

const (
	HasOne RelationType = iota + 1
	BelongsTo
	HasMany
)

// String returns the schema spelling of the relation type.
func (t RelationType) String() string {
	switch t {
	case HasOne:
		return "hasOne"
	case BelongsTo:
		return "belongsTo"
	case HasMany:
		return "hasMany"
	default:
		return fmt.Sprintf("RelationType(%d)", int(t))
	}
}

// ToOne reports whether the relationship yields at most one entity.
func (t RelationType) ToOne() bool {
	return t == HasOne || t == BelongsTo
}

// ParseRelationType parses hasOne, belongsTo or hasMany (case-insensitive,
// underscores allowed).
func ParseRelationType(s string) (RelationType, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "hasone":
		return HasOne, nil
	case "belongsto":
		return BelongsTo, nil
	case "hasmany":
		return HasMany, nil
	}
	return 0, fmt.Errorf("unknown relation type %q", s)
}

// Relationship describes how an owning model reaches a related model.
//
// For HasOne and HasMany the related rows point at the owner:
// related.Foreign = owner.Local. For BelongsTo the owner points at the
// related row: owner.Local = related.Foreign.
type Relationship struct {
	Name      string
	Type      RelationType
	FieldName string // entity field the related data is assigned to
	To        Model
	Local     string // column on the owning model
	Foreign   string // column on the related model
}

// Field returns the entity field the related data is stored under.
func (r Relationship) Field() string {
	if r.FieldName != "" {
		return r.FieldName
	}
	return r.Name
}
