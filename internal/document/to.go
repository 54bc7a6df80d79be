package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/rowgraph/internal/ir"
)

// Handler converts an opaque foreign scalar (an ir.Opaque payload) during
// To.
type Handler func(v any) any

// ToOptions controls To.
type ToOptions struct {
	// Handlers convert opaque values by their dynamic type. They are
	// consulted before DefaultHandlers.
	Handlers map[reflect.Type]Handler
}

// DefaultHandlers render UUIDs as their canonical string and times in
// RFC 3339 with nanoseconds.
func DefaultHandlers() map[reflect.Type]Handler {
	return map[reflect.Type]Handler{
		reflect.TypeOf(uuid.UUID{}): func(v any) any { return v.(uuid.UUID).String() },
		reflect.TypeOf(time.Time{}): func(v any) any { return v.(time.Time).Format(time.RFC3339Nano) },
	}
}

func (o ToOptions) handler(t reflect.Type) (Handler, bool) {
	if h, ok := o.Handlers[t]; ok {
		return h, true
	}
	h, ok := defaultHandlers[t]
	return h, ok
}

var defaultHandlers = DefaultHandlers()

// Formats accepted by To.
const (
	FormatArray = "array" // plain Go data: map[string]any, []any, scalars
	FormatJSON  = "json"  // JSON encoding of the array form
)

// To converts the document to format, applying handlers to opaque values.
// Nested collections are fully hydrated.
func (d *Document) To(format string, opts ToOptions) (any, error) {
	v, err := toNative(d, opts)
	if err != nil {
		return nil, err
	}
	return encode(format, v)
}

// To hydrates everything and converts the collection to format: a []any in
// ArrayMode, a map[string]any in SetMode.
func (c *Collection) To(format string, opts ToOptions) (any, error) {
	v, err := toNative(c, opts)
	if err != nil {
		return nil, err
	}
	return encode(format, v)
}

func encode(format string, v any) (any, error) {
	switch format {
	case FormatArray, "":
		return v, nil
	case FormatJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// toNative converts a stored value to plain Go data.
func toNative(v any, opts ToOptions) (any, error) {
	switch val := v.(type) {
	case *Document:
		out := make(map[string]any, len(val.current))
		for k, field := range val.current {
			nv, err := toNative(field, opts)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case *Collection:
		if _, err := val.All(); err != nil {
			return nil, err
		}
		if val.mode == SetMode {
			out := make(map[string]any, len(val.current))
			for _, s := range val.current {
				nv, err := toNative(s.value, opts)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", s.key, err)
				}
				out[s.key] = nv
			}
			return out, nil
		}
		out := make([]any, len(val.current))
		for i, s := range val.current {
			nv, err := toNative(s.value, opts)
			if err != nil {
				return nil, fmt.Errorf("%d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	case ir.Opaque:
		if val.V == nil {
			return nil, nil
		}
		if h, ok := opts.handler(reflect.TypeOf(val.V)); ok {
			return h(val.V), nil
		}
		return val.V, nil
	case ir.Array:
		out := make([]any, len(val))
		for i, elem := range val {
			nv, err := toNative(elem, opts)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case ir.Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			nv, err := toNative(elem, opts)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case ir.Value:
		return ir.Native(val), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
