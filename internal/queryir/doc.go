// Package queryir provides the abstract query representation the store
// compiles into joined row cursors.
//
// A Select names a root model and the relationship paths to load with it
// ("comments", "comments.author"). Backends turn it into one query whose
// rows carry a column group per path, ordered so that all rows of one root
// entity are contiguous; that ordering is what makes single-pass hydration
// possible.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which keeps backend type
// switches exhaustive:
//
//	switch p := pred.(type) {
//	case Equals:
//	case IsNull:
//	case And:
//	}
//
// JOIN SHAPE:
//
// Every relationship path becomes an outer join, so a root without related
// rows still yields one row (with the path's columns all null). Two hasMany
// paths under the same parent would multiply each other's rows; Validate
// rejects them.
package queryir
