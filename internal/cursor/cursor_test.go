package cursor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceIteration(t *testing.T) {
	c := FromSlice([]int{1, 2, 3})

	var got []int
	for c.HasNext() {
		got = append(got, c.Current())
		c.Advance()
	}

	assert.Equal(t, []int{1, 2, 3}, got)
	assert.False(t, c.HasNext())
	assert.Equal(t, 0, c.Current())
	assert.NoError(t, c.Err())
}

func TestSlicePeekIsNonDestructive(t *testing.T) {
	c := FromSlice([]string{"a", "b"})

	next, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", next)

	// Peeking twice does not move the cursor.
	next, ok = c.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", next)
	assert.Equal(t, "a", c.Current())

	c.Advance()
	assert.Equal(t, "b", c.Current())
	_, ok = c.Peek()
	assert.False(t, ok)
}

func TestSliceEmpty(t *testing.T) {
	c := FromSlice[int](nil)

	assert.False(t, c.HasNext())
	_, ok := c.Peek()
	assert.False(t, ok)
	c.Advance()
	assert.Equal(t, 0, c.Position())
}

func TestSliceCloseStopsIteration(t *testing.T) {
	c := FromSlice([]int{1, 2})
	require.NoError(t, c.Close())

	assert.False(t, c.HasNext())
	_, ok := c.Peek()
	assert.False(t, ok)
	assert.True(t, errors.Is(c.Err(), ErrClosed))
	assert.NoError(t, c.Close())
}

func TestMapConvertsLazily(t *testing.T) {
	calls := 0
	m := Map[int, string](FromSlice([]int{1, 2, 3}), func(n int) (string, error) {
		calls++
		return string(rune('a' + n - 1)), nil
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "a", m.Current())

	next, ok := m.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", next)
	_, _ = m.Peek()
	assert.Equal(t, 2, calls, "peeked item is converted once")

	m.Advance()
	assert.Equal(t, "b", m.Current())
	assert.Equal(t, 2, calls)

	m.Advance()
	assert.Equal(t, "c", m.Current())
	m.Advance()
	assert.False(t, m.HasNext())
	assert.NoError(t, m.Err())
}

func TestMapErrorStopsIteration(t *testing.T) {
	boom := errors.New("boom")
	m := Map[int, int](FromSlice([]int{1, 2, 3}), func(n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n * 10, nil
	})

	assert.Equal(t, 10, m.Current())
	_, ok := m.Peek()
	assert.False(t, ok)

	m.Advance()
	assert.False(t, m.HasNext())
	assert.ErrorIs(t, m.Err(), boom)
}
