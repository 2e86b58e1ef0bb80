// Package idset tracks the runner IDs known to a single run.
//
// A run builds a fresh Set from every ID already present in the archive and
// threads it through minting so that newly minted IDs are never reused.
package idset

import "sort"

// Set records runner IDs that are already taken.
type Set interface {
	// SeenAndRecord checks if id is taken and records it if not.
	// Returns true if id was already taken, false if it was newly recorded.
	SeenAndRecord(id string) bool

	// Contains reports whether id is taken without recording it.
	Contains(id string) bool

	// Unrecord releases id so it can be minted again.
	Unrecord(id string)

	Size() int
}

// inMemorySet implements Set with a map.
type inMemorySet struct {
	seen map[string]struct{}
}

// New creates a Set seeded with ids.
func New(ids ...string) Set {
	s := &inMemorySet{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			s.seen[id] = struct{}{}
		}
	}
	return s
}

// SeenAndRecord checks if id is taken and records it if not.
func (s *inMemorySet) SeenAndRecord(id string) bool {
	if _, exists := s.seen[id]; exists {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

func (s *inMemorySet) Contains(id string) bool {
	_, exists := s.seen[id]
	return exists
}

func (s *inMemorySet) Unrecord(id string) {
	delete(s.seen, id)
}

func (s *inMemorySet) Size() int {
	return len(s.seen)
}

// Sorted returns the IDs of s in lexical order.
func Sorted(s Set) []string {
	ms, ok := s.(*inMemorySet)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ms.seen))
	for id := range ms.seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
