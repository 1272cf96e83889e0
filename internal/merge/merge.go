// Package merge reconciles entry collections coming from different sources
// (local state, backup files, the remote sync file).
package merge

import (
	"sort"

	"github.com/pbaille/echoes/internal/domain"
)

// Entries concatenates collections in argument order, keeps the first entry
// seen for every id and orders the result by SavedAt, newest first.
//
// Earlier collections win on id collisions: pass local state first so an
// incoming duplicate never overwrites a local edit. Entries with equal
// SavedAt keep their concatenation order.
func Entries(collections ...[]domain.Entry) []domain.Entry {
	size := 0
	for _, c := range collections {
		size += len(c)
	}

	seen := make(map[int64]struct{}, size)
	merged := make([]domain.Entry, 0, size)
	for _, c := range collections {
		for _, e := range c {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SavedAt.After(merged[j].SavedAt)
	})
	return merged
}

// NewIDs counts the entries of merged whose id does not appear in base.
func NewIDs(base, merged []domain.Entry) int {
	known := make(map[int64]struct{}, len(base))
	for _, e := range base {
		known[e.ID] = struct{}{}
	}

	n := 0
	for _, e := range merged {
		if _, ok := known[e.ID]; !ok {
			n++
		}
	}
	return n
}
