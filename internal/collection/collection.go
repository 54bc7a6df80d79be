// Package collection materializes entities lazily from a forward-only
// source.
//
// A Collection pulls entities one at a time from its Populator only when an
// operation needs them: Get stops at the first match, All and the bulk
// operations drain the source. Once the source is exhausted or the
// collection is closed it never populates again, and lookups degrade to
// not-found rather than failing. The only hard failure a populator reports
// is a HydrationOrderError (or the source's own I/O error); it surfaces
// once, after which the collection is closed.
package collection

import (
	"io"
	"iter"
	"log/slog"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Query is what the query-execution collaborator exposes about the rows a
// cursor will yield.
type Query interface {
	// ColumnMap describes how each row is segmented by relationship path.
	ColumnMap() ir.ColumnMap

	// Relationships maps each non-root alias to its relationship.
	Relationships() map[string]model.Relationship
}

// Populator produces the next entity from a source.
type Populator interface {
	// Populate returns the next entity, or nil once the source is exhausted.
	Populate() (*model.Entity, error)

	// Close releases the source.
	Close() error
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Collection is an ordered, lazily populated sequence of entities with a
// parallel key index.
//
// Not safe for concurrent use.
type Collection struct {
	model  model.Model
	query  Query
	source Populator
	data   []*model.Entity
	keys   []ir.Key
	index  map[string]int // key fingerprint → position
	closed bool
	logger *slog.Logger
}

// New returns a collection that pulls entities from p on demand.
func New(m model.Model, q Query, p Populator, opts ...Option) *Collection {
	c := &Collection{
		model:  m,
		query:  q,
		source: p,
		index:  make(map[string]int),
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromEntities returns a collection over a static set of entities. It has
// no source, so it is closed from the start.
func FromEntities(m model.Model, entities []*model.Entity, opts ...Option) *Collection {
	c := New(m, nil, nil, opts...)
	for _, e := range entities {
		c.add(e)
	}
	c.closed = true
	return c
}

// Model returns the collection's model.
func (c *Collection) Model() model.Model {
	return c.model
}

// Query returns the query the collection was built from, or nil.
func (c *Collection) Query() Query {
	return c.query
}

// Closed reports whether the collection will populate no further.
func (c *Collection) Closed() bool {
	return c.closed
}

// Close stops population and releases the source. Entities already
// materialized stay accessible.
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

// Get returns the entity with the given key. Already materialized entities
// are returned without touching the source; otherwise the source is pulled
// until a match or exhaustion. The zero key materializes everything and
// matches nothing.
func (c *Collection) Get(key ir.Key) (*model.Entity, bool, error) {
	if key.IsZero() {
		_, err := c.All()
		return nil, false, err
	}
	if pos, ok := c.index[key.Fingerprint()]; ok {
		return c.data[pos], true, nil
	}
	return c.scan(key)
}

// scan pulls until an entity keyed k is materialized.
func (c *Collection) scan(k ir.Key) (*model.Entity, bool, error) {
	fp := k.Fingerprint()
	for {
		pos, err := c.pull()
		if err != nil {
			return nil, false, err
		}
		if pos < 0 {
			return nil, false, nil
		}
		if c.keys[pos].Fingerprint() == fp {
			return c.data[pos], true, nil
		}
	}
}

// pull materializes one entity and returns its position, or -1 when the
// collection is closed or the source is exhausted.
func (c *Collection) pull() (int, error) {
	if c.closed || c.source == nil {
		return -1, nil
	}
	e, err := c.source.Populate()
	if err != nil {
		c.logger.Error("population failed", "model", c.modelName(), "error", err)
		c.Close()
		return -1, err
	}
	if e == nil {
		c.logger.Debug("source exhausted", "model", c.modelName(), "count", len(c.data))
		return -1, c.Close()
	}
	return c.add(e), nil
}

// add appends e with its synthesized key. A key already indexed keeps
// pointing at the first entity carrying it.
func (c *Collection) add(e *model.Entity) int {
	return c.addKeyed(e, e.Key())
}

// addKeyed appends e under key k, synthesized for the append position.
func (c *Collection) addKeyed(e *model.Entity, k ir.Key) int {
	pos := len(c.data)
	key := SynthesizeKey(k, pos)
	c.data = append(c.data, e)
	c.keys = append(c.keys, key)
	fp := key.Fingerprint()
	if _, dup := c.index[fp]; !dup {
		c.index[fp] = pos
	}
	return pos
}

// replace overwrites the entity at pos, keeping its key.
func (c *Collection) replace(pos int, e *model.Entity) {
	c.data[pos] = e
}

// remove deletes the entity at pos and reindexes the tail. Position keys
// behind pos move with their entities.
func (c *Collection) remove(pos int) {
	c.data = append(c.data[:pos], c.data[pos+1:]...)
	c.keys = append(c.keys[:pos], c.keys[pos+1:]...)
	for i := pos; i < len(c.keys); i++ {
		if _, ok := c.keys[i].Position(); ok {
			c.keys[i] = ir.PositionKey(i)
		}
	}
	c.reindex()
}

func (c *Collection) reindex() {
	clear(c.index)
	for i, k := range c.keys {
		fp := k.Fingerprint()
		if _, dup := c.index[fp]; !dup {
			c.index[fp] = i
		}
	}
}

func (c *Collection) modelName() string {
	if c.model == nil {
		return ""
	}
	return c.model.Name()
}

// All materializes every remaining entity and returns them in source
// order. Afterwards the collection is closed. If population fails, All
// returns the error and no entities.
func (c *Collection) All() ([]*model.Entity, error) {
	for {
		pos, err := c.pull()
		if err != nil {
			return nil, err
		}
		if pos < 0 {
			break
		}
	}
	return append([]*model.Entity(nil), c.data...), nil
}

// Len returns the number of materialized entities.
func (c *Collection) Len() int {
	return len(c.data)
}

// At returns the materialized entity at position i.
func (c *Collection) At(i int) (*model.Entity, bool) {
	if i < 0 || i >= len(c.data) {
		return nil, false
	}
	return c.data[i], true
}

// Keys materializes everything and returns the key index, parallel to All.
func (c *Collection) Keys() ([]ir.Key, error) {
	if _, err := c.All(); err != nil {
		return nil, err
	}
	return append([]ir.Key(nil), c.keys...), nil
}

// Iter yields the materialized entities by position. It does not pull.
func (c *Collection) Iter() iter.Seq2[int, *model.Entity] {
	return func(yield func(int, *model.Entity) bool) {
		for i := 0; i < len(c.data); i++ {
			if !yield(i, c.data[i]) {
				return
			}
		}
	}
}

// Each materializes everything, then calls fn for each entity until fn
// returns false.
func (c *Collection) Each(fn func(i int, e *model.Entity) bool) error {
	all, err := c.All()
	if err != nil {
		return err
	}
	for i, e := range all {
		if !fn(i, e) {
			break
		}
	}
	return nil
}

// Filter materializes everything and returns the entities fn accepts.
func (c *Collection) Filter(fn func(e *model.Entity) bool) ([]*model.Entity, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	var out []*model.Entity
	for _, e := range all {
		if fn(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Find materializes everything and returns the first entity fn accepts.
func (c *Collection) Find(fn func(e *model.Entity) bool) (*model.Entity, bool, error) {
	all, err := c.All()
	if err != nil {
		return nil, false, err
	}
	for _, e := range all {
		if fn(e) {
			return e, true, nil
		}
	}
	return nil, false, nil
}

// Map materializes everything in c and converts each entity with fn.
func Map[T any](c *Collection, fn func(e *model.Entity) T) ([]T, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([]T, len(all))
	for i, e := range all {
		out[i] = fn(e)
	}
	return out, nil
}

// ToSlice materializes everything and returns each entity, related
// entities included, as plain Go data.
func (c *Collection) ToSlice() ([]map[string]any, error) {
	return Map(c, (*model.Entity).ToMap)
}

// Export materializes everything and returns the collection as an ir.Array
// of nested entity objects, suitable for canonical encoding.
func (c *Collection) Export() (ir.Array, error) {
	values, err := Map(c, func(e *model.Entity) ir.Value { return e.Value() })
	if err != nil {
		return nil, err
	}
	return ir.Array(values), nil
}
