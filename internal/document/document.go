package document

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Document is a change-tracked map of fields. Field values are ir.Value
// scalars, nested *Document values or *Collection values.
type Document struct {
	model    model.Model
	key      ir.Key
	original map[string]any
	current  map[string]any
	exists   bool
}

// New returns a document owned by m (which may be nil) holding data. The
// document starts unmodified: original and current are the same.
func New(m model.Model, data map[string]any) *Document {
	return newDocument(m, data, false)
}

// Hydrated returns a document for data read from a source: it exists and
// starts unmodified. Nested documents and collections exist too.
func Hydrated(m model.Model, data map[string]any) *Document {
	return newDocument(m, data, true)
}

func newDocument(m model.Model, data map[string]any, exists bool) *Document {
	d := &Document{
		model:   m,
		current: make(map[string]any, len(data)),
		exists:  exists,
	}
	for k, v := range data {
		d.current[k] = cast(m, k, v, exists)
	}
	d.original = copyFields(d.current)
	return d
}

func copyFields(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Model returns the owning model, or nil.
func (d *Document) Model() model.Model {
	return d.model
}

// Exists reports whether the document has been read from or saved to a
// source.
func (d *Document) Exists() bool {
	return d.exists
}

// Key returns the document key: the id given to Sync if any, otherwise the
// key the model derives from the current scalar fields.
func (d *Document) Key() ir.Key {
	if !d.key.IsZero() {
		return d.key
	}
	if d.model == nil {
		return ir.Key{}
	}
	scalars := make(map[string]ir.Value, len(d.current))
	for k, v := range d.current {
		if s, ok := v.(ir.Value); ok {
			scalars[k] = s
		}
	}
	return d.model.Key(scalars)
}

// Fields returns the current field names, sorted.
func (d *Document) Fields() []string {
	names := make([]string, 0, len(d.current))
	for k := range d.current {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get resolves a dot-separated path. Segments through a Collection are
// offsets into it. A missing segment anywhere on the path yields nil.
func (d *Document) Get(path string) any {
	v, _ := d.lookup(strings.Split(path, "."))
	return v
}

// Has reports whether path resolves to a value.
func (d *Document) Has(path string) bool {
	_, ok := d.lookup(strings.Split(path, "."))
	return ok
}

func (d *Document) lookup(segments []string) (any, bool) {
	v, ok := d.current[segments[0]]
	if !ok || len(segments) == 1 {
		return v, ok
	}
	switch next := v.(type) {
	case *Document:
		return next.lookup(segments[1:])
	case *Collection:
		item, found := next.Get(segmentOffset(next, segments[1]))
		if !found {
			return nil, false
		}
		if len(segments) == 2 {
			return item, true
		}
		if doc, isDoc := item.(*Document); isDoc {
			return doc.lookup(segments[2:])
		}
	}
	return nil, false
}

// segmentOffset converts a path segment into a collection offset.
func segmentOffset(c *Collection, segment string) any {
	if c.Mode() == ArrayMode {
		if i, err := strconv.Atoi(segment); err == nil {
			return i
		}
	}
	return segment
}

// Set assigns value at a dot-separated path. Missing or null intermediate
// segments become nested documents; maps and slices are cast to documents and
// collections through the model's relationships. Setting through a scalar
// is an error.
func (d *Document) Set(path string, value any) error {
	segments := strings.Split(path, ".")
	target := d
	for i, seg := range segments[:len(segments)-1] {
		switch next := target.current[seg].(type) {
		case *Document:
			target = next
		case nil, ir.Null:
			child := target.childDocument(seg)
			target.current[seg] = child
			target = child
		case *Collection:
			rest := segments[i+1:]
			offset := segmentOffset(next, rest[0])
			if len(rest) == 1 {
				return next.Set(offset, value)
			}
			item, _ := next.Get(offset)
			doc, ok := item.(*Document)
			if !ok {
				return fmt.Errorf("set %s: %s has no document at %s", path, seg, rest[0])
			}
			return doc.Set(strings.Join(rest[1:], "."), value)
		default:
			return fmt.Errorf("set %s: %s is not a document", path, seg)
		}
	}
	last := segments[len(segments)-1]
	target.current[last] = cast(target.model, last, value, false)
	return nil
}

// childDocument returns an empty nested document for field, owned by the
// related model when the field is a relationship.
func (d *Document) childDocument(field string) *Document {
	var related model.Model
	if d.model != nil {
		if rel, ok := d.model.Relationship(field); ok {
			related = rel.To
		}
	}
	return newDocument(related, nil, false)
}

// Unset removes the value at path. It reports whether a value was removed.
func (d *Document) Unset(path string) bool {
	segments := strings.Split(path, ".")
	if len(segments) > 1 {
		parent, ok := d.lookup(segments[:len(segments)-1])
		if !ok {
			return false
		}
		switch p := parent.(type) {
		case *Document:
			return p.Unset(segments[len(segments)-1])
		case *Collection:
			return p.Unset(segmentOffset(p, segments[len(segments)-1]))
		}
		return false
	}
	if _, ok := d.current[path]; !ok {
		return false
	}
	delete(d.current, path)
	return true
}

// Modified reports whether the current fields differ from the synced ones:
// a field added or removed, a scalar changed, a nested value replaced, or a
// nested value reporting itself modified.
func (d *Document) Modified() bool {
	if len(d.original) != len(d.current) {
		return true
	}
	for k, cur := range d.current {
		orig, ok := d.original[k]
		if !ok || changed(orig, cur) {
			return true
		}
	}
	return false
}

// Sync marks the document persisted. With opts.Recursive nested trackable
// values are synced first. A non-nil id becomes the document key and is
// written to the model's key field; data holds fields assigned by the
// source. Finally original is rebased onto current.
func (d *Document) Sync(id any, data map[string]any, opts SyncOptions) {
	if opts.Recursive {
		for _, v := range d.current {
			if t, ok := v.(Trackable); ok {
				t.Sync(nil, nil, opts)
			}
		}
	}
	if id != nil {
		d.key = ir.ScalarKey(ir.FromNative(id))
		if d.model != nil {
			if kf := d.model.KeyFields(); len(kf) == 1 {
				d.current[kf[0]] = d.key.Scalar()
			}
		}
	}
	for k, v := range data {
		d.current[k] = cast(d.model, k, v, true)
	}
	d.exists = true
	d.original = copyFields(d.current)
}

// Update rebases the document and everything nested in it after a save.
func (d *Document) Update() {
	d.Sync(nil, nil, SyncOptions{Recursive: true})
}

// Export is the read-only state a save routine diffs.
type Export struct {
	Exists bool
	Key    ir.Key
	Data   map[string]any // original
	Update map[string]any // current
}

// Export returns the document's synced and current fields.
func (d *Document) Export() Export {
	return Export{
		Exists: d.exists,
		Key:    d.Key(),
		Data:   copyFields(d.original),
		Update: copyFields(d.current),
	}
}

// Snapshot returns every current field as plain Go data. It is what a save
// routine writes for a document that does not exist yet.
func (x Export) Snapshot() (map[string]any, error) {
	all, err := Export{Update: x.Update}.Changes()
	if err != nil {
		return nil, err
	}
	return all.Set, nil
}

// Changes is a minimal diff between two snapshots of a document.
type Changes struct {
	// Set holds fields to write, as plain Go data.
	Set map[string]any

	// Unset lists fields to remove, sorted.
	Unset []string
}

// Empty reports whether there is nothing to write.
func (c Changes) Empty() bool {
	return len(c.Set) == 0 && len(c.Unset) == 0
}

// Changes computes the fields that differ between Data and Update. Nested
// values are written whole when they changed.
func (x Export) Changes() (Changes, error) {
	out := Changes{Set: make(map[string]any)}
	for k, cur := range x.Update {
		orig, ok := x.Data[k]
		if ok && !changed(orig, cur) {
			continue
		}
		v, err := toNative(cur, ToOptions{})
		if err != nil {
			return Changes{}, fmt.Errorf("field %s: %w", k, err)
		}
		out.Set[k] = v
	}
	for k := range x.Data {
		if _, ok := x.Update[k]; !ok {
			out.Unset = append(out.Unset, k)
		}
	}
	sort.Strings(out.Unset)
	return out, nil
}
