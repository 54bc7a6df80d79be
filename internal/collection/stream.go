package collection

import (
	"errors"
	"fmt"

	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Stream is a Populator that creates one entity per cursor item, with no
// relationship handling.
type Stream struct {
	model  model.Model
	cursor cursor.Cursor[map[string]ir.Value]
}

// NewStream returns a populator creating entities of m from cur.
func NewStream(m model.Model, cur cursor.Cursor[map[string]ir.Value]) *Stream {
	return &Stream{model: m, cursor: cur}
}

// NewFlat returns a collection with one entity of m per item of cur.
func NewFlat(m model.Model, cur cursor.Cursor[map[string]ir.Value], opts ...Option) *Collection {
	return New(m, nil, NewStream(m, cur), opts...)
}

// Populate creates the entity for the current item and advances.
func (s *Stream) Populate() (*model.Entity, error) {
	if !s.cursor.HasNext() {
		if err := s.cursor.Err(); err != nil && !errors.Is(err, cursor.ErrClosed) {
			return nil, fmt.Errorf("populate %s: %w", s.model.Name(), err)
		}
		return nil, nil
	}
	e := s.model.Create(s.cursor.Current(), model.CreateOptions{Exists: true})
	s.cursor.Advance()
	return e, nil
}

// Close closes the cursor.
func (s *Stream) Close() error {
	return s.cursor.Close()
}
