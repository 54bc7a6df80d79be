package ir

import (
	"strconv"
	"strings"
)

// Key identifies an entity within a collection.
//
// A Key is either scalar (a single value) or composite (field name → value).
// Composite keys compare by structural equality: {a:1,b:2} equals {b:2,a:1}.
// A composite key with a single field is equal to the scalar key holding the
// same value.
//
// A position key stands in for an entity that has no key of its own. It
// never equals a scalar or composite key, whatever value they hold.
//
// The zero Key is "no key".
type Key struct {
	scalar     Value
	fields     Object
	pos        int
	positional bool
}

// ScalarKey returns a key holding a single value.
func ScalarKey(v Value) Key {
	if v == nil {
		v = Null{}
	}
	return Key{scalar: v}
}

// CompositeKey returns a key over several named fields.
func CompositeKey(fields Object) Key {
	cp := make(Object, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Key{fields: cp}
}

// PositionKey returns the key synthesized for a keyless entity at a
// position.
func PositionKey(pos int) Key {
	return Key{pos: pos, positional: true}
}

// Position returns the position of a position key. ok is false for any
// other key.
func (k Key) Position() (pos int, ok bool) {
	return k.pos, k.positional
}

// KeyOf extracts a key from data given the key field names.
// One field yields a scalar key, several a composite key, none the zero key.
func KeyOf(fields []string, data map[string]Value) Key {
	switch len(fields) {
	case 0:
		return Key{}
	case 1:
		return ScalarKey(lookup(data, fields[0]))
	}
	obj := make(Object, len(fields))
	for _, f := range fields {
		obj[f] = lookup(data, f)
	}
	return Key{fields: obj}
}

func lookup(data map[string]Value, field string) Value {
	if v, ok := data[field]; ok && v != nil {
		return v
	}
	return Null{}
}

// IsZero reports whether k holds no key at all.
func (k Key) IsZero() bool {
	return !k.positional && k.scalar == nil && k.fields == nil
}

// IsComposite reports whether k is keyed by more than one named field.
func (k Key) IsComposite() bool {
	return k.fields != nil
}

// IsEmpty reports whether the key carries no identifying data: the zero
// key, an empty scalar, or a composite whose fields are all empty. Position
// keys are never empty.
func (k Key) IsEmpty() bool {
	if k.positional {
		return false
	}
	if k.IsZero() {
		return true
	}
	if k.fields == nil {
		return IsEmpty(k.scalar)
	}
	for _, v := range k.fields {
		if !IsEmpty(v) {
			return false
		}
	}
	return true
}

// Scalar returns the single value of k. For a composite key with one field
// that field's value is returned, for a position key the position; otherwise
// nil.
func (k Key) Scalar() Value {
	if k.positional {
		return Int(k.pos)
	}
	if k.fields == nil {
		return k.scalar
	}
	if len(k.fields) == 1 {
		for _, v := range k.fields {
			return v
		}
	}
	return nil
}

// Fields returns a copy of the composite fields, or nil for scalar keys.
func (k Key) Fields() Object {
	if k.fields == nil {
		return nil
	}
	cp := make(Object, len(k.fields))
	for f, v := range k.fields {
		cp[f] = v
	}
	return cp
}

// Value returns the key as a single Value: the scalar itself, or an Object
// for composite keys. Composite keys of one field flatten to their scalar.
func (k Key) Value() Value {
	if s := k.Scalar(); s != nil {
		return s
	}
	if k.fields == nil {
		return Null{}
	}
	return k.fields
}

// Fingerprint returns the canonical encoding of the key. Two keys are equal
// iff their fingerprints are equal; it is suitable as a map key. Position
// keys encode as "#<pos>", which no canonical JSON document starts with.
func (k Key) Fingerprint() string {
	if k.positional {
		return "#" + strconv.Itoa(k.pos)
	}
	b, err := MarshalCanonical(k.Value())
	if err != nil {
		// Only non-finite floats fail to encode; fall back to the Go syntax
		// so that the key still has a stable identity.
		return "!" + k.String()
	}
	return string(b)
}

// Equal reports structural equality, independent of composite field order.
// Equality is defined by the canonical encoding, so Int(1) equals Float(1)
// and an Opaque UUID equals its string form.
func (k Key) Equal(o Key) bool {
	if k.IsZero() || o.IsZero() {
		return k.IsZero() && o.IsZero()
	}
	return k.Fingerprint() == o.Fingerprint()
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	if k.IsZero() {
		return "<none>"
	}
	if k.positional {
		return "#" + strconv.Itoa(k.pos)
	}
	if s := k.Scalar(); s != nil {
		return renderValue(s)
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range k.fields.SortedKeys() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f)
		b.WriteByte(':')
		b.WriteString(renderValue(k.fields[f]))
	}
	b.WriteByte('}')
	return b.String()
}

func renderValue(v Value) string {
	b, err := MarshalValue(v)
	if err != nil {
		return "?"
	}
	return string(b)
}
