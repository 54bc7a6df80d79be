package document

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Mode selects how a Collection addresses its items.
type Mode int

const (
	// ArrayMode addresses items by position.
	ArrayMode Mode = iota
	// SetMode addresses items by string key, in insertion order.
	SetMode
)

// String returns the mode name.
func (m Mode) String() string {
	if m == SetMode {
		return "set"
	}
	return "array"
}

type slot struct {
	key   string // SetMode only
	value any
}

// Collection is a change-tracked, ordered collection of documents or
// scalars, optionally hydrated lazily from a cursor of decoded documents.
//
// Not safe for concurrent use.
type Collection struct {
	model    model.Model
	mode     Mode
	keyField string
	original []slot
	current  []slot
	source   cursor.Cursor[map[string]any]
	closed   bool
	exists   bool
	err      error
	logger   *slog.Logger
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithKeyField switches a lazy collection to SetMode, keying each hydrated
// document by the given field.
func WithKeyField(field string) Option {
	return func(c *Collection) {
		c.mode = SetMode
		c.keyField = field
	}
}

func newCollection(m model.Model, mode Mode) *Collection {
	return &Collection{
		model:  m,
		mode:   mode,
		closed: true,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewArray returns an array-mode collection holding items. Maps become
// documents of m. It starts unmodified.
func NewArray(m model.Model, items []any) *Collection {
	return newArray(m, items, false)
}

func newArray(m model.Model, items []any, exists bool) *Collection {
	c := newCollection(m, ArrayMode)
	c.exists = exists
	for _, item := range items {
		c.current = append(c.current, slot{value: castItem(m, item, exists)})
	}
	c.original = append([]slot(nil), c.current...)
	return c
}

// NewSet returns a set-mode collection holding items, ordered by key. It
// starts unmodified.
func NewSet(m model.Model, items map[string]any) *Collection {
	c := newCollection(m, SetMode)
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.current = append(c.current, slot{key: k, value: castItem(m, items[k], false)})
	}
	c.original = append([]slot(nil), c.current...)
	return c
}

// NewLazy returns a collection that hydrates one document of m per cursor
// item, on demand. Hydrated documents exist and count as synced state.
func NewLazy(m model.Model, cur cursor.Cursor[map[string]any], opts ...Option) *Collection {
	c := newCollection(m, ArrayMode)
	c.source = cur
	c.closed = false
	c.exists = true
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// castItem converts a collection item into its stored form.
func castItem(m model.Model, item any, exists bool) any {
	switch v := item.(type) {
	case *Document, *Collection:
		return v
	case map[string]any:
		return newDocument(m, v, exists)
	case ir.Object:
		return newDocument(m, ir.Native(v).(map[string]any), exists)
	case []any:
		return newArray(nil, v, exists)
	case ir.Array:
		return newArray(nil, ir.Native(v).([]any), exists)
	case ir.Value:
		return v
	default:
		return ir.FromNative(v)
	}
}

// Model returns the model of the collection's documents, or nil.
func (c *Collection) Model() model.Model {
	return c.model
}

// Mode returns the addressing mode.
func (c *Collection) Mode() Mode {
	return c.mode
}

// Exists reports whether the collection was read from or saved to a source.
func (c *Collection) Exists() bool {
	return c.exists
}

// Closed reports whether the collection will hydrate no further.
func (c *Collection) Closed() bool {
	return c.closed
}

// Close stops hydration and closes the cursor.
func (c *Collection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.source == nil {
		return nil
	}
	return c.source.Close()
}

// Err returns the cursor error that stopped hydration, if any.
func (c *Collection) Err() error {
	return c.err
}

// Len returns the number of items hydrated or assigned so far.
func (c *Collection) Len() int {
	return len(c.current)
}

// pull hydrates one document. It reports false once nothing is left.
func (c *Collection) pull() bool {
	if c.closed {
		return false
	}
	if !c.source.HasNext() {
		if err := c.source.Err(); err != nil && !errors.Is(err, cursor.ErrClosed) {
			c.err = fmt.Errorf("hydrate documents: %w", err)
			c.logger.Error("document hydration failed", "error", err)
		}
		c.logger.Debug("document cursor exhausted", "count", len(c.current))
		c.Close()
		return false
	}

	doc := Hydrated(c.model, c.source.Current())
	c.source.Advance()

	s := slot{value: doc}
	if c.mode == SetMode {
		s.key = slotKey(doc.Get(c.keyField), len(c.current))
	}
	c.current = append(c.current, s)
	c.original = append(c.original, s)
	return true
}

// slotKey renders a key value as a set-mode slot key. Empty values fall
// back to the position.
func slotKey(v any, pos int) string {
	val, ok := v.(ir.Value)
	if !ok || ir.IsEmpty(val) {
		return strconv.Itoa(pos)
	}
	if s, ok := val.(ir.String); ok {
		return string(s)
	}
	return ir.ScalarKey(val).String()
}

// All hydrates everything and returns the current items.
func (c *Collection) All() ([]any, error) {
	for c.pull() {
	}
	if c.err != nil {
		return nil, c.err
	}
	out := make([]any, len(c.current))
	for i, s := range c.current {
		out[i] = s.value
	}
	return out, nil
}

// Keys hydrates everything and returns the slot keys: positions rendered
// as strings in ArrayMode.
func (c *Collection) Keys() ([]string, error) {
	if _, err := c.All(); err != nil {
		return nil, err
	}
	keys := make([]string, len(c.current))
	for i, s := range c.current {
		keys[i] = c.slotName(i, s)
	}
	return keys, nil
}

func (c *Collection) slotName(i int, s slot) string {
	if c.mode == SetMode {
		return s.key
	}
	return strconv.Itoa(i)
}

// find returns the position addressed by offset, hydrating as needed, or -1.
func (c *Collection) find(offset any) int {
	if c.mode == ArrayMode {
		i, ok := position(offset)
		if !ok || i < 0 {
			return -1
		}
		for i >= len(c.current) && c.pull() {
		}
		if i >= len(c.current) {
			return -1
		}
		return i
	}

	key := setKey(offset)
	for i := 0; ; i++ {
		for i >= len(c.current) {
			if !c.pull() {
				return -1
			}
		}
		if c.current[i].key == key {
			return i
		}
	}
}

// position converts an array-mode offset. nil addresses the first item.
func position(offset any) (int, bool) {
	switch o := offset.(type) {
	case nil:
		return 0, true
	case int:
		return o, true
	case int64:
		return int(o), true
	case ir.Int:
		return int(o), true
	case string:
		i, err := strconv.Atoi(o)
		return i, err == nil
	}
	return 0, false
}

func setKey(offset any) string {
	switch o := offset.(type) {
	case string:
		return o
	case ir.String:
		return string(o)
	case int:
		return strconv.Itoa(o)
	}
	return fmt.Sprint(offset)
}

// Get returns the item at offset: a position in ArrayMode, a key in
// SetMode. Items not yet hydrated are pulled from the cursor.
func (c *Collection) Get(offset any) (any, bool) {
	i := c.find(offset)
	if i < 0 {
		return nil, false
	}
	return c.current[i].value, true
}

// Set assigns value at offset. A falsy offset (nil, false, "") appends
// after hydrating everything. In ArrayMode a position equal to the length
// also appends; a position beyond it is an error. In SetMode an unknown key
// appends. Maps and slices are cast to documents and collections of the
// collection's model.
func (c *Collection) Set(offset any, value any) error {
	v := castItem(c.model, value, false)
	if falsy(offset) {
		for c.pull() {
		}
		s := slot{value: v}
		if c.mode == SetMode {
			s.key = c.nextKey()
		}
		c.current = append(c.current, s)
		return nil
	}

	if i := c.find(offset); i >= 0 {
		c.current[i].value = v
		return nil
	}

	if c.mode == SetMode {
		c.current = append(c.current, slot{key: setKey(offset), value: v})
		return nil
	}
	i, ok := position(offset)
	if !ok || i != len(c.current) {
		return fmt.Errorf("set offset %v: out of range (len %d)", offset, len(c.current))
	}
	c.current = append(c.current, slot{value: v})
	return nil
}

// nextKey returns the key for an appended SetMode item: the item count or
// one past the largest integer key, whichever is greater, skipping keys
// already taken.
func (c *Collection) nextKey() string {
	next := len(c.current)
	taken := make(map[string]bool, len(c.current))
	for _, s := range c.current {
		taken[s.key] = true
		if i, err := strconv.Atoi(s.key); err == nil && i >= next {
			next = i + 1
		}
	}
	for taken[strconv.Itoa(next)] {
		next++
	}
	return strconv.Itoa(next)
}

// Unset removes the item at offset. It reports whether one was removed.
func (c *Collection) Unset(offset any) bool {
	i := c.find(offset)
	if i < 0 {
		return false
	}
	c.current = append(c.current[:i:i], c.current[i+1:]...)
	return true
}

// Each hydrates everything, then calls fn with each slot key and item until
// fn returns false.
func (c *Collection) Each(fn func(key string, item any) bool) error {
	if _, err := c.All(); err != nil {
		return err
	}
	for i, s := range c.current {
		if !fn(c.slotName(i, s), s.value) {
			break
		}
	}
	return nil
}

// Modified reports whether the items differ from the synced ones in count,
// in value or identity, or because a nested item reports itself modified.
// ArrayMode compares by position, SetMode by key.
func (c *Collection) Modified() bool {
	if len(c.original) != len(c.current) {
		return true
	}
	if c.mode == ArrayMode {
		for i := range c.current {
			if changed(c.original[i].value, c.current[i].value) {
				return true
			}
		}
		return false
	}
	orig := make(map[string]any, len(c.original))
	for _, s := range c.original {
		orig[s.key] = s.value
	}
	for _, s := range c.current {
		o, ok := orig[s.key]
		if !ok || changed(o, s.value) {
			return true
		}
	}
	return false
}

// Sync marks the collection persisted and rebases original onto current.
// With opts.Recursive nested trackable items are synced first. Collections
// carry no key, so id and data are ignored.
func (c *Collection) Sync(id any, data map[string]any, opts SyncOptions) {
	if opts.Recursive {
		for _, s := range c.current {
			if t, ok := s.value.(Trackable); ok {
				t.Sync(nil, nil, opts)
			}
		}
	}
	c.exists = true
	c.original = append([]slot(nil), c.current...)
}

// Update rebases the collection and everything nested in it after a save.
func (c *Collection) Update() {
	c.Sync(nil, nil, SyncOptions{Recursive: true})
}

// CollectionExport is the read-only state a save routine diffs.
type CollectionExport struct {
	Exists bool
	Mode   Mode
	// DataKeys and UpdateKeys are the slot keys of Data and Update.
	DataKeys   []string
	Data       []any // original
	UpdateKeys []string
	Update     []any // current
}

// Export hydrates everything and returns the synced and current items.
func (c *Collection) Export() (CollectionExport, error) {
	if _, err := c.All(); err != nil {
		return CollectionExport{}, err
	}
	x := CollectionExport{Exists: c.exists, Mode: c.mode}
	for i, s := range c.original {
		x.DataKeys = append(x.DataKeys, c.slotName(i, s))
		x.Data = append(x.Data, s.value)
	}
	for i, s := range c.current {
		x.UpdateKeys = append(x.UpdateKeys, c.slotName(i, s))
		x.Update = append(x.Update, s.value)
	}
	return x, nil
}
