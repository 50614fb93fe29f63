// SPDX-License-Identifier: MIT

package variant

import (
	"encoding/json"
	"sort"
)

// IntSet is an unordered set of ints with deterministic JSON output.
// Used for panel ID collections.
type IntSet map[int]struct{}

// NewIntSet builds a set from the given members.
func NewIntSet(members ...int) IntSet {
	s := make(IntSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts a member into the set.
func (s IntSet) Add(member int) {
	s[member] = struct{}{}
}

// Has reports whether member is in the set.
func (s IntSet) Has(member int) bool {
	_, ok := s[member]
	return ok
}

// Merge adds every member of other into s.
func (s IntSet) Merge(other IntSet) {
	for m := range other {
		s[m] = struct{}{}
	}
}

// Sorted returns the members in ascending order.
func (s IntSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s IntSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts a JSON array of ints.
func (s *IntSet) UnmarshalJSON(data []byte) error {
	var members []int
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*s = NewIntSet(members...)
	return nil
}
