package testutil

import (
	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/ir"
)

// CountingCursor wraps a row cursor and counts Advance and Peek calls, so
// tests can assert how far hydration drove the source.
type CountingCursor struct {
	cursor.Cursor[ir.Row]
	Advances int
	Peeks    int
	Closes   int
}

// NewCountingCursor returns a counting cursor over rows.
func NewCountingCursor(rows []ir.Row) *CountingCursor {
	return &CountingCursor{Cursor: cursor.FromSlice(rows)}
}

func (c *CountingCursor) Advance() {
	c.Advances++
	c.Cursor.Advance()
}

func (c *CountingCursor) Peek() (ir.Row, bool) {
	c.Peeks++
	return c.Cursor.Peek()
}

func (c *CountingCursor) Close() error {
	c.Closes++
	return c.Cursor.Close()
}
