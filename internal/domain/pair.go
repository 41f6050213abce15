package domain

// Pair is an ordered (id in A, id in B) tuple. It is comparable, so it can
// be used directly as a map key.
type Pair struct {
	A string
	B string
}

// PairSet is a duplicate-free set of pairs that remembers insertion order.
// The zero value is not usable; create sets with NewPairSet.
type PairSet struct {
	order []Pair
	index map[Pair]struct{}
}

// NewPairSet creates a set seeded with pairs.
func NewPairSet(pairs ...Pair) *PairSet {
	s := &PairSet{
		order: make([]Pair, 0, len(pairs)),
		index: make(map[Pair]struct{}, len(pairs)),
	}
	for _, p := range pairs {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was new.
func (s *PairSet) Add(p Pair) bool {
	if _, ok := s.index[p]; ok {
		return false
	}
	s.index[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

// Contains reports membership. A nil set contains nothing.
func (s *PairSet) Contains(p Pair) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[p]
	return ok
}

// Len returns the number of pairs. A nil set is empty.
func (s *PairSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Pairs returns the pairs in insertion order. Callers must not modify it.
func (s *PairSet) Pairs() []Pair {
	if s == nil {
		return nil
	}
	return s.order
}

// IntersectionLen counts pairs present in both s and other.
func (s *PairSet) IntersectionLen(other *PairSet) int {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	n := 0
	for _, p := range small.Pairs() {
		if large.Contains(p) {
			n++
		}
	}
	return n
}

// Intersect returns the pairs of s that are also in other, in s's order.
func (s *PairSet) Intersect(other *PairSet) *PairSet {
	out := NewPairSet()
	for _, p := range s.Pairs() {
		if other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// Difference returns the pairs of s that are not in other, in s's order.
func (s *PairSet) Difference(other *PairSet) *PairSet {
	out := NewPairSet()
	for _, p := range s.Pairs() {
		if !other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// IsSubsetOf reports whether every pair of s is in other.
func (s *PairSet) IsSubsetOf(other *PairSet) bool {
	for _, p := range s.Pairs() {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}
