package sequence

import "sync/atomic"

// Sequencer issues strictly increasing identifiers, shared by order ids,
// arrival sequences and trade sequences. Values are never reused, gaps are
// allowed. Safe for concurrent callers.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer that will issue values above start.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next identifier.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued identifier.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Floor raises the sequencer so no future value collides with v.
// Used once at startup after recovering persisted state.
func (s *Sequencer) Floor(v uint64) {
	for {
		cur := s.next.Load()
		if cur >= v {
			return
		}
		if s.next.CompareAndSwap(cur, v) {
			return
		}
	}
}
