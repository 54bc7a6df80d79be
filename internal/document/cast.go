package document

import (
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// cast converts a value assigned to field of a document owned by m into
// its stored form: maps become nested Documents, slices become array-mode
// Collections, everything else an ir.Value. When m declares a relationship
// named field, nested values take the related model.
func cast(m model.Model, field string, value any, exists bool) any {
	var related model.Model
	if m != nil {
		if rel, ok := m.Relationship(field); ok {
			related = rel.To
		}
	}

	switch v := value.(type) {
	case *Document, *Collection:
		return v
	case map[string]any:
		return newDocument(related, v, exists)
	case ir.Object:
		return newDocument(related, ir.Native(v).(map[string]any), exists)
	case []any:
		return newArray(related, v, exists)
	case ir.Array:
		return newArray(related, ir.Native(v).([]any), exists)
	case []map[string]any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = item
		}
		return newArray(related, items, exists)
	case ir.Value:
		return v
	default:
		return ir.FromNative(v)
	}
}
