package collection

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Hydrator is a Populator that assembles one nested root entity per row
// group, where a row group is a maximal run of contiguous rows sharing the
// same root key.
//
// The cursor is consumed in a single forward pass. Group ends are detected
// with a non-destructive Peek, so after Populate returns the cursor sits on
// the first row of the next group.
type Hydrator struct {
	cursor cursor.Cursor[ir.Row]
	seg    *ir.Segmenter
	tree   *DependencyNode
	seen   map[string]bool // fingerprints of closed-out root keys
	groups int
	logger *slog.Logger
}

// NewHydrator prepares the dependency tree and row segmenter for q.
// The hydrator owns cur.
func NewHydrator(m model.Model, q Query, cur cursor.Cursor[ir.Row], logger *slog.Logger) (*Hydrator, error) {
	columns := q.ColumnMap()
	tree, err := BuildDependencyTree(m, columns, q.Relationships())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Hydrator{
		cursor: cur,
		seg:    ir.NewSegmenter(columns),
		tree:   tree,
		seen:   make(map[string]bool),
		logger: logger,
	}, nil
}

// NewRelational returns a collection hydrating nested entities of m from
// the joined rows of cur.
func NewRelational(m model.Model, q Query, cur cursor.Cursor[ir.Row], opts ...Option) (*Collection, error) {
	c := New(m, q, nil, opts...)
	h, err := NewHydrator(m, q, cur, c.logger)
	if err != nil {
		cur.Close()
		return nil, err
	}
	c.source = h
	return c, nil
}

// Tree returns the dependency tree built for the query.
func (h *Hydrator) Tree() *DependencyNode {
	return h.tree
}

// Populate hydrates the next row group. It returns nil once the cursor is
// exhausted, and a *HydrationOrderError when a root key reappears after
// its group was closed out.
func (h *Hydrator) Populate() (*model.Entity, error) {
	if !h.cursor.HasNext() {
		return nil, h.cursorErr()
	}

	first, err := h.seg.Segment(h.cursor.Current())
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", h.tree.Model.Name(), err)
	}
	key := h.tree.Key(first)
	fp := key.Fingerprint()
	if h.seen[fp] {
		h.logger.Error("hydration order violation",
			"model", h.tree.Model.Name(),
			"key", key.String(),
			"group", h.groups)
		return nil, &HydrationOrderError{Model: h.tree.Model.Name(), Key: key, Group: h.groups}
	}

	buf := []ir.Segmented{first}
	for {
		next, ok := h.cursor.Peek()
		if !ok {
			h.cursor.Advance()
			break
		}
		seg, err := h.seg.Segment(next)
		if err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", h.tree.Model.Name(), err)
		}
		h.cursor.Advance()
		if h.tree.Key(seg).Fingerprint() != fp {
			break
		}
		buf = append(buf, seg)
	}
	if err := h.cursorErr(); err != nil {
		return nil, err
	}

	h.seen[fp] = true
	h.groups++
	h.logger.Debug("hydrated group",
		"model", h.tree.Model.Name(),
		"key", key.String(),
		"rows", len(buf))
	return hydrateRange(h.tree, buf, 0, len(buf)), nil
}

// cursorErr reports a source failure. A cursor closed under us counts as
// exhaustion.
func (h *Hydrator) cursorErr() error {
	err := h.cursor.Err()
	if err == nil || errors.Is(err, cursor.ErrClosed) {
		return nil
	}
	return fmt.Errorf("hydrate %s: %w", h.tree.Model.Name(), err)
}

// Close closes the cursor.
func (h *Hydrator) Close() error {
	return h.cursor.Close()
}

// hydrateRange builds the entity for node from the rows buf[lo:hi], all of
// which share node's key. To-one children reuse the same range; hasMany
// children split it at their own key changes.
func hydrateRange(node *DependencyNode, buf []ir.Segmented, lo, hi int) *model.Entity {
	values := buf[lo][node.Group]
	data := make(map[string]ir.Value, len(node.Fields))
	for i, f := range node.Fields {
		data[f] = values[i]
	}
	e := node.Model.Create(data, model.CreateOptions{Exists: true})

	for _, child := range node.Children {
		if child.Relation.Type == model.HasMany {
			e.SetMany(child.Field, hydrateMany(child, buf, lo, hi))
			continue
		}
		if buf[lo][child.Group].AllEmpty() {
			e.SetOne(child.Field, nil)
			continue
		}
		e.SetOne(child.Field, hydrateRange(child, buf, lo, hi))
	}
	return e
}

// hydrateMany splits buf[lo:hi] into contiguous runs of node's key and
// hydrates one entity per run. Runs whose first row is entirely empty are
// outer-join misses and produce nothing.
func hydrateMany(node *DependencyNode, buf []ir.Segmented, lo, hi int) []*model.Entity {
	out := []*model.Entity{}
	for start := lo; start < hi; {
		fp := node.Key(buf[start]).Fingerprint()
		end := start + 1
		for end < hi && node.Key(buf[end]).Fingerprint() == fp {
			end++
		}
		if !buf[start][node.Group].AllEmpty() {
			out = append(out, hydrateRange(node, buf, start, end))
		}
		start = end
	}
	return out
}
