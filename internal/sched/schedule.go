// Package sched holds the live agent population in a stable activation
// order. Agents are yielded in insertion order, which keeps every phase of a
// tick reproducible for a given seed.
package sched

// Entry is one scheduled agent.
type Entry[ID comparable, K comparable] struct {
	ID   ID
	Kind K
}

// Schedule is an ordered registry of agents tagged with their kind.
type Schedule[ID comparable, K comparable] struct {
	entries []Entry[ID, K]
	index   map[ID]int
	removed int
	counts  map[K]int
	steps   int
}

// New creates an empty schedule.
func New[ID comparable, K comparable]() *Schedule[ID, K] {
	return &Schedule[ID, K]{
		index:  make(map[ID]int),
		counts: make(map[K]int),
	}
}

// Add appends id to the end of the activation order. Adding an agent that is
// already scheduled is a no-op.
func (s *Schedule[ID, K]) Add(id ID, kind K) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, Entry[ID, K]{ID: id, Kind: kind})
	s.counts[kind]++
}

// Remove drops id from the schedule. Removing an unknown agent is a no-op.
// Slots are tombstoned and compacted lazily so removal during iteration over
// a previously returned slice is safe.
func (s *Schedule[ID, K]) Remove(id ID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)
	s.counts[s.entries[i].Kind]--
	s.removed++
	if s.removed > len(s.entries)/2 {
		s.compact()
	}
}

func (s *Schedule[ID, K]) compact() {
	live := make([]Entry[ID, K], 0, len(s.index))
	for k, e := range s.entries {
		if i, ok := s.index[e.ID]; ok && i == k {
			s.index[e.ID] = len(live)
			live = append(live, e)
		}
	}
	s.entries = live
	s.removed = 0
}

// Has reports whether id is scheduled.
func (s *Schedule[ID, K]) Has(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// Agents returns every scheduled agent in activation order. The returned
// slice is a copy.
func (s *Schedule[ID, K]) Agents() []Entry[ID, K] {
	out := make([]Entry[ID, K], 0, len(s.index))
	for i, e := range s.entries {
		if j, ok := s.index[e.ID]; ok && j == i {
			out = append(out, e)
		}
	}
	return out
}

// OfKind returns the IDs of scheduled agents of one kind, in activation
// order.
func (s *Schedule[ID, K]) OfKind(kind K) []ID {
	out := make([]ID, 0, s.counts[kind])
	for i, e := range s.entries {
		if e.Kind != kind {
			continue
		}
		if j, ok := s.index[e.ID]; ok && j == i {
			out = append(out, e.ID)
		}
	}
	return out
}

// Count returns how many agents of kind are scheduled.
func (s *Schedule[ID, K]) Count(kind K) int {
	return s.counts[kind]
}

// Len returns the number of scheduled agents.
func (s *Schedule[ID, K]) Len() int {
	return len(s.index)
}

// Advance marks the end of a step.
func (s *Schedule[ID, K]) Advance() {
	s.steps++
}

// Steps returns how many times Advance has been called.
func (s *Schedule[ID, K]) Steps() int {
	return s.steps
}
