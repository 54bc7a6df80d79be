package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates deterministic document IDs for tests.
//
// IDs have UUID shape so they sort and render like the UUIDv7 keys the store
// assigns in production: the first call to NewID returns
// "00000000-0000-7000-8000-000000000001".
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceIDs creates a generator starting at 0.
func NewSequenceIDs() *SequenceIDs {
	return &SequenceIDs{}
}

// NewID increments the sequence and returns the matching ID.
func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", g.seq)
}

// Current returns how many IDs have been issued.
func (g *SequenceIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. After Reset, NewID returns the first ID again.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
