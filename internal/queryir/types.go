package queryir

import "github.com/roach88/rowgraph/internal/ir"

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select loads root entities of Model together with related entities along
// the With paths.
//
// Example:
//
//	Select{
//	  Model: "posts",
//	  With:  []string{"comments", "comments.author"},
//	  Filter: Equals{Field: "comments.author.name", Value: ir.String("ann")},
//	}
//
// Paths are dot-separated relationship names, each starting at the root or
// at another listed path. Filter fields are qualified by path the same way;
// an unqualified field belongs to the root. Limit caps the number of root
// entities (not rows); 0 means no limit.
type Select struct {
	Model  string
	With   []string
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Equals is a field-equals-literal predicate. Comparing to ir.Null matches
// null fields.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// IsNull matches rows whose field is null, for example related rows that
// are absent from an outer join.
type IsNull struct {
	Field string
}

func (IsNull) predicateNode() {}

// And represents a conjunction of predicates (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// SplitField splits a qualified field into its path and field name:
// "comments.author.name" → ("comments.author", "name").
func SplitField(field string) (path, name string) {
	return ir.ParentAlias(field), ir.LastSegment(field)
}
