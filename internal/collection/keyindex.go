package collection

import (
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// SynthesizeKey is the key synthesis policy applied whenever an entity is
// indexed. The model-derived key is used as is, except:
//
//   - an empty key (zero, null, "" or all-empty composite) becomes a
//     position key;
//   - a boolean scalar key becomes a position key;
//   - a composite key of a single field is flattened to that field's value.
//
// pos is the position the entity occupies (or will occupy). Position keys
// never equal data keys, so a keyless entity cannot shadow a keyed one.
func SynthesizeKey(k ir.Key, pos int) ir.Key {
	if _, ok := k.Position(); ok {
		return ir.PositionKey(pos)
	}
	if k.IsEmpty() {
		return ir.PositionKey(pos)
	}
	s := k.Scalar()
	if _, ok := s.(ir.Bool); ok {
		return ir.PositionKey(pos)
	}
	if k.IsComposite() && s != nil {
		return ir.ScalarKey(s)
	}
	return k
}

// KeyIndex is a Collection addressed by offsets that may be scalar or
// composite keys. A falsy offset (nil, false, 0, "", Null) or true
// addresses position 0, the root record.
type KeyIndex struct {
	*Collection
}

// NewKeyIndex wraps c.
func NewKeyIndex(c *Collection) *KeyIndex {
	return &KeyIndex{Collection: c}
}

// SetOptions controls KeyIndex.Set.
type SetOptions struct {
	// Exists marks entities created from data as persisted.
	Exists bool
}

// OffsetKey converts an offset to a key. ok is false for offsets that
// address position 0.
func OffsetKey(offset any) (k ir.Key, ok bool) {
	switch o := offset.(type) {
	case nil:
		return ir.Key{}, false
	case bool:
		return ir.Key{}, false
	case ir.Bool:
		return ir.Key{}, false
	case ir.Key:
		if o.IsZero() {
			return ir.Key{}, false
		}
		return o, true
	case ir.Object:
		return ir.CompositeKey(o), true
	case map[string]any:
		return ir.CompositeKey(ir.FromNative(o).(ir.Object)), true
	}
	v := ir.FromNative(offset)
	if ir.IsEmpty(v) || ir.Equal(v, ir.Int(0)) {
		return ir.Key{}, false
	}
	return ir.ScalarKey(v), true
}

// locate returns the position addressed by offset, pulling from the source
// as needed. It returns -1 when nothing matches.
func (x *KeyIndex) locate(offset any) (int, error) {
	k, ok := OffsetKey(offset)
	if !ok {
		if len(x.data) == 0 {
			if _, err := x.pull(); err != nil {
				return -1, err
			}
		}
		if len(x.data) == 0 {
			return -1, nil
		}
		return 0, nil
	}
	if pos, ok := x.index[k.Fingerprint()]; ok {
		return pos, nil
	}
	e, found, err := x.scan(k)
	if err != nil || !found {
		return -1, err
	}
	for i, d := range x.data {
		if d == e {
			return i, nil
		}
	}
	return -1, nil
}

// Exists reports whether an entity is addressed by offset.
func (x *KeyIndex) Exists(offset any) (bool, error) {
	pos, err := x.locate(offset)
	return pos >= 0, err
}

// Get returns the entity addressed by offset.
func (x *KeyIndex) Get(offset any) (*model.Entity, bool, error) {
	pos, err := x.locate(offset)
	if err != nil || pos < 0 {
		return nil, false, err
	}
	return x.data[pos], true, nil
}

// Unset removes the entity addressed by offset. It reports whether one was
// removed.
func (x *KeyIndex) Unset(offset any) (bool, error) {
	pos, err := x.locate(offset)
	if err != nil || pos < 0 {
		return false, err
	}
	x.remove(pos)
	return true, nil
}

// Set creates an entity from data and stores it under offset, or under the
// key its model derives when offset is falsy. An entity already stored
// under that key is replaced in place.
func (x *KeyIndex) Set(data map[string]ir.Value, offset any, opts SetOptions) (*model.Entity, error) {
	var e *model.Entity
	if x.model != nil {
		e = x.model.Create(data, model.CreateOptions{Exists: opts.Exists})
	} else {
		e = model.NewEntity(nil, data, opts.Exists)
	}
	return e, x.SetEntity(e, offset)
}

// SetEntity stores e under offset, or under e's own key when offset is
// falsy, replacing any entity already stored under that key. An entity
// left without a key is appended after everything the source still holds;
// a position key as offset replaces the keyless entity at that position.
func (x *KeyIndex) SetEntity(e *model.Entity, offset any) error {
	k, ok := OffsetKey(offset)
	if !ok {
		k = e.Key()
	}

	if _, explicit := k.Position(); !explicit {
		if _, keyless := SynthesizeKey(k, 0).Position(); keyless {
			if _, err := x.All(); err != nil {
				return err
			}
			x.addKeyed(e, k)
			return nil
		}
	}

	pos, err := x.locate(k)
	if err != nil {
		return err
	}
	if pos >= 0 {
		x.replace(pos, e)
		return nil
	}
	x.addKeyed(e, k)
	return nil
}
