// Package document holds change-tracked, non-relational documents and
// collections of them.
//
// Each Document and Collection keeps two snapshots: original, the state last
// synced with the data source, and current, the state after local edits.
// Modified compares them, recursing into nested trackable values; Sync
// rebases original onto current after a save. Export hands both snapshots
// to a save routine so it can write a minimal diff.
package document

import (
	"github.com/roach88/rowgraph/internal/ir"
)

// Trackable is implemented by values that carry their own change state.
// Documents and collections nested inside a document are Trackable.
type Trackable interface {
	// Modified reports whether the value changed since the last sync.
	Modified() bool

	// Sync marks the value persisted and rebases its original snapshot.
	// id and data carry values assigned by the data source, when any.
	Sync(id any, data map[string]any, opts SyncOptions)
}

// SyncOptions controls Sync.
type SyncOptions struct {
	// Recursive syncs nested trackable values before rebasing.
	Recursive bool
}

var (
	_ Trackable = (*Document)(nil)
	_ Trackable = (*Collection)(nil)
)

// changed reports whether cur differs from orig by value or identity.
// A trackable value that kept its identity differs only if it reports
// itself modified.
func changed(orig, cur any) bool {
	switch c := cur.(type) {
	case Trackable:
		if o, ok := orig.(Trackable); !ok || o != c {
			return true
		}
		return c.Modified()
	case ir.Value:
		o, ok := orig.(ir.Value)
		return !ok || !ir.Equal(o, c)
	case nil:
		return orig != nil
	default:
		return true
	}
}

// falsy reports whether an offset means "no offset" (append).
func falsy(offset any) bool {
	switch o := offset.(type) {
	case nil:
		return true
	case bool:
		return !o
	case string:
		return o == ""
	case ir.Value:
		return ir.IsEmpty(o) || o == ir.Bool(false)
	}
	return false
}
