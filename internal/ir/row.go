package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRowShape is returned when a row does not match its column map.
var ErrRowShape = errors.New("row does not match column map")

// Row is the ordered tuple of values a cursor yields for one fetch step.
type Row []Value

// ColumnGroup lists, in row order, the fields one relationship path
// contributes to a row. Alias "" is the root model.
type ColumnGroup struct {
	Alias  string
	Fields []string
}

// ColumnMap describes how a flat row is segmented: groups appear in the
// order their columns appear in the row.
type ColumnMap []ColumnGroup

// Aliases returns the group aliases in row order.
func (m ColumnMap) Aliases() []string {
	out := make([]string, len(m))
	for i, g := range m {
		out[i] = g.Alias
	}
	return out
}

// Group returns the index and fields of the group with the given alias.
func (m ColumnMap) Group(alias string) (int, ColumnGroup, bool) {
	for i, g := range m {
		if g.Alias == alias {
			return i, g, true
		}
	}
	return -1, ColumnGroup{}, false
}

// Width returns the total number of columns a row must carry.
func (m ColumnMap) Width() int {
	n := 0
	for _, g := range m {
		n += len(g.Fields)
	}
	return n
}

// Validate checks that aliases are unique and that the root group exists.
func (m ColumnMap) Validate() error {
	seen := make(map[string]bool, len(m))
	for _, g := range m {
		if seen[g.Alias] {
			return fmt.Errorf("column map: duplicate alias %q", g.Alias)
		}
		seen[g.Alias] = true
	}
	if !seen[""] {
		return fmt.Errorf("column map: no root group")
	}
	return nil
}

// ParentAlias returns the alias of the path's parent: "comments.author" →
// "comments", "comments" → "".
func ParentAlias(alias string) string {
	if i := strings.LastIndexByte(alias, '.'); i >= 0 {
		return alias[:i]
	}
	return ""
}

// LastSegment returns the final path segment: "comments.author" → "author".
func LastSegment(alias string) string {
	if i := strings.LastIndexByte(alias, '.'); i >= 0 {
		return alias[i+1:]
	}
	return alias
}

// Segmented is a row sliced into its column groups, indexed like the
// ColumnMap it was produced from.
type Segmented []Row

// Segmenter slices rows along precomputed group boundaries. It is built
// once per query so per-row work is slicing only.
type Segmenter struct {
	columns ColumnMap
	bounds  []int // bounds[i]..bounds[i+1] is group i
}

// NewSegmenter precomputes group boundaries for a column map.
func NewSegmenter(m ColumnMap) *Segmenter {
	bounds := make([]int, len(m)+1)
	for i, g := range m {
		bounds[i+1] = bounds[i] + len(g.Fields)
	}
	return &Segmenter{columns: m, bounds: bounds}
}

// Columns returns the column map the segmenter was built from.
func (s *Segmenter) Columns() ColumnMap {
	return s.columns
}

// Segment slices a row into groups. The returned groups alias the row.
func (s *Segmenter) Segment(row Row) (Segmented, error) {
	if len(row) != s.bounds[len(s.bounds)-1] {
		return nil, fmt.Errorf("%w: %d values, want %d", ErrRowShape, len(row), s.bounds[len(s.bounds)-1])
	}
	out := make(Segmented, len(s.columns))
	for i := range s.columns {
		out[i] = row[s.bounds[i]:s.bounds[i+1]]
	}
	return out, nil
}

// Fields zips a group's values with its field names.
func (s *Segmenter) Fields(group int, values Row) map[string]Value {
	names := s.columns[group].Fields
	out := make(map[string]Value, len(names))
	for i, name := range names {
		out[name] = values[i]
	}
	return out
}

// AllEmpty reports whether every value in the row is empty. Outer-join rows
// with no match arrive this way.
func (r Row) AllEmpty() bool {
	for _, v := range r {
		if !IsEmpty(v) {
			return false
		}
	}
	return true
}

// KeyAt extracts a key from a group's values using precomputed positions.
// names are the key field names, parallel to positions.
func (r Row) KeyAt(positions []int, names []string) Key {
	switch len(positions) {
	case 0:
		return Key{}
	case 1:
		return ScalarKey(r[positions[0]])
	}
	obj := make(Object, len(positions))
	for i, p := range positions {
		obj[names[i]] = r[p]
	}
	return Key{fields: obj}
}
