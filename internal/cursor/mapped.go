package cursor

// Mapped converts each item of a source cursor with fn. A conversion error
// stops iteration and is reported by Err.
type Mapped[S, T any] struct {
	src     Cursor[S]
	fn      func(S) (T, error)
	cur     T
	hasCur  bool
	next    T
	hasNext bool
	err     error
}

// Map wraps src, converting items lazily. Conversion of the lookahead item
// happens at most once.
func Map[S, T any](src Cursor[S], fn func(S) (T, error)) *Mapped[S, T] {
	m := &Mapped[S, T]{src: src, fn: fn}
	m.load()
	return m
}

func (m *Mapped[S, T]) load() {
	var zero T
	m.cur, m.hasCur = zero, false
	if m.err != nil || !m.src.HasNext() {
		return
	}
	v, err := m.fn(m.src.Current())
	if err != nil {
		m.err = err
		return
	}
	m.cur, m.hasCur = v, true
}

func (m *Mapped[S, T]) HasNext() bool {
	return m.hasCur
}

func (m *Mapped[S, T]) Current() T {
	return m.cur
}

func (m *Mapped[S, T]) Advance() {
	if !m.hasCur {
		return
	}
	m.src.Advance()
	if m.hasNext {
		var zero T
		m.cur, m.hasCur = m.next, true
		m.next, m.hasNext = zero, false
		return
	}
	m.load()
}

func (m *Mapped[S, T]) Peek() (T, bool) {
	var zero T
	if !m.hasCur || m.err != nil {
		return zero, false
	}
	if m.hasNext {
		return m.next, true
	}
	raw, ok := m.src.Peek()
	if !ok {
		return zero, false
	}
	v, err := m.fn(raw)
	if err != nil {
		m.err = err
		return zero, false
	}
	m.next, m.hasNext = v, true
	return v, true
}

func (m *Mapped[S, T]) Err() error {
	if m.err != nil {
		return m.err
	}
	return m.src.Err()
}

func (m *Mapped[S, T]) Close() error {
	var zero T
	m.cur, m.hasCur = zero, false
	m.next, m.hasNext = zero, false
	return m.src.Close()
}
