package structure

// ConsumedSet records which swing level IDs have already produced a sweep
// or structure event. Detection snapshots are immutable; consumption state
// lives here instead of flags on shared objects, so repeated passes over
// the same series with a fresh set yield identical results.
//
// A ConsumedSet is owned by exactly one evaluation and is not safe for
// concurrent use.
type ConsumedSet struct {
	ids map[string]struct{}
}

func NewConsumedSet() *ConsumedSet {
	return &ConsumedSet{ids: make(map[string]struct{})}
}

// Consume marks the level ID as used.
func (s *ConsumedSet) Consume(id string) {
	s.ids[id] = struct{}{}
}

// Has reports whether the level ID has been used.
func (s *ConsumedSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of consumed IDs.
func (s *ConsumedSet) Len() int {
	return len(s.ids)
}
