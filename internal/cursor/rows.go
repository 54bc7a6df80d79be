package cursor

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rowgraph/internal/ir"
)

// Rows adapts *sql.Rows to a Cursor of ir.Row.
//
// database/sql has no lookahead, so Rows keeps a one-row buffer: Peek
// fetches the next row from the driver and holds it until Advance.
type Rows struct {
	rows    *sql.Rows
	width   int
	cur     ir.Row
	next    ir.Row
	hasCur  bool
	hasNext bool // next holds a fetched row
	done    bool // driver exhausted or failed
	closed  bool
	err     error
	fetched int
}

// NewRows wraps rows and positions the cursor on the first row.
// The cursor owns rows and closes it on exhaustion, error or Close.
func NewRows(rows *sql.Rows) (*Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	r := &Rows{rows: rows, width: len(cols)}
	r.cur, r.hasCur = r.fetch()
	return r, nil
}

// fetch reads one row from the driver.
func (r *Rows) fetch() (ir.Row, bool) {
	if r.done || r.closed {
		return nil, false
	}
	if !r.rows.Next() {
		r.done = true
		if err := r.rows.Err(); err != nil {
			r.err = fmt.Errorf("iterate rows: %w", err)
		}
		r.rows.Close()
		return nil, false
	}

	values := make([]any, r.width)
	ptrs := make([]any, r.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.done = true
		r.err = fmt.Errorf("scan row: %w", err)
		r.rows.Close()
		return nil, false
	}
	r.fetched++

	row := make(ir.Row, r.width)
	for i, v := range values {
		row[i] = ir.FromNative(v)
	}
	return row, true
}

func (r *Rows) HasNext() bool {
	return r.hasCur && !r.closed
}

func (r *Rows) Current() ir.Row {
	if !r.HasNext() {
		return nil
	}
	return r.cur
}

func (r *Rows) Advance() {
	if !r.HasNext() {
		return
	}
	if r.hasNext {
		r.cur, r.hasCur = r.next, true
		r.next, r.hasNext = nil, false
		return
	}
	r.cur, r.hasCur = r.fetch()
}

func (r *Rows) Peek() (ir.Row, bool) {
	if !r.HasNext() {
		return nil, false
	}
	if !r.hasNext {
		r.next, r.hasNext = r.fetch()
	}
	return r.next, r.hasNext
}

func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	if r.closed && !r.done {
		return ErrClosed
	}
	return nil
}

func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.hasCur, r.hasNext = false, false
	if err := r.rows.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("close rows: %w", err)
	}
	return nil
}

// Fetched returns how many rows have been read from the driver, including a
// row held by Peek.
func (r *Rows) Fetched() int {
	return r.fetched
}
