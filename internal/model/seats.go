package model

import "sort"

// SeatSet is an unordered set of seat ids.
type SeatSet map[string]struct{}

// NewSeatSet builds a set from any number of seat lists.
func NewSeatSet(lists ...[]string) SeatSet {
	s := SeatSet{}
	for _, l := range lists {
		s.Add(l...)
	}
	return s
}

// Add inserts seats into the set.
func (s SeatSet) Add(seats ...string) {
	for _, seat := range seats {
		s[seat] = struct{}{}
	}
}

// Remove deletes seats from the set.
func (s SeatSet) Remove(seats ...string) {
	for _, seat := range seats {
		delete(s, seat)
	}
}

// Has reports membership.
func (s SeatSet) Has(seat string) bool {
	_, ok := s[seat]
	return ok
}

// Sorted returns the members in lexical order.
func (s SeatSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for seat := range s {
		out = append(out, seat)
	}
	sort.Strings(out)
	return out
}
