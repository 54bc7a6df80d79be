// Package cursor defines the forward-only row source consumed by the
// collection layer, together with in-memory, database/sql and mapping
// implementations.
//
// A Cursor is positioned on a current item. Peek looks one item ahead
// without moving; Advance moves. Once a cursor reports HasNext() == false it
// never yields again, and Err reports why iteration stopped, if not by
// exhaustion.
package cursor

import "errors"

// ErrClosed is returned by Err when the cursor was closed before exhaustion.
var ErrClosed = errors.New("cursor: closed")

// Cursor is a forward-only source of items with non-destructive lookahead.
type Cursor[T any] interface {
	// HasNext reports whether Current holds an item.
	HasNext() bool

	// Current returns the item the cursor is positioned on.
	// The zero value is returned when HasNext is false.
	Current() T

	// Advance moves to the next item.
	Advance()

	// Peek returns the item after Current without moving the cursor.
	// Peeking and then not advancing leaves the cursor able to yield the
	// identical item on the next Advance.
	Peek() (T, bool)

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the underlying resource. It is safe to call twice.
	Close() error
}

// Slice is a Cursor over an in-memory slice.
type Slice[T any] struct {
	items  []T
	pos    int
	closed bool
}

// FromSlice returns a cursor positioned on the first item.
func FromSlice[T any](items []T) *Slice[T] {
	return &Slice[T]{items: items}
}

func (s *Slice[T]) HasNext() bool {
	return !s.closed && s.pos < len(s.items)
}

func (s *Slice[T]) Current() T {
	var zero T
	if !s.HasNext() {
		return zero
	}
	return s.items[s.pos]
}

func (s *Slice[T]) Advance() {
	if s.HasNext() {
		s.pos++
	}
}

func (s *Slice[T]) Peek() (T, bool) {
	var zero T
	if s.closed || s.pos+1 >= len(s.items) {
		return zero, false
	}
	return s.items[s.pos+1], true
}

func (s *Slice[T]) Err() error {
	if s.closed && s.pos < len(s.items) {
		return ErrClosed
	}
	return nil
}

func (s *Slice[T]) Close() error {
	s.closed = true
	return nil
}

// Position returns how many items have been advanced past.
func (s *Slice[T]) Position() int {
	return s.pos
}
