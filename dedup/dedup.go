// Package dedup drops records whose key was already seen. The first record
// with a given key wins.
package dedup

import "github.com/use-agent/tablescout/models"

// Set remembers seen keys. The zero value is not usable; call New.
type Set struct {
	seen map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add records key and reports whether it was new.
func (s *Set) Add(key string) bool {
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys seen.
func (s *Set) Len() int {
	return len(s.seen)
}

// Records filters recs down to the first record for each key, keeping
// their original order.
func Records(recs []models.Record) []models.Record {
	s := New()
	out := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		if s.Add(r.Key) {
			out = append(out, r)
		}
	}
	return out
}
