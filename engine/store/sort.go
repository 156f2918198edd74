package store

import "sort"

// SortHits applies the canonical ranking: points descending, then price
// ascending with missing price last, then id ascending. Backends whose
// engines rank natively (similarity score) skip this; the rest share it
// so every façade response ties the same way.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		switch {
		case a.Price != nil && b.Price != nil:
			if *a.Price != *b.Price {
				return *a.Price < *b.Price
			}
		case a.Price != nil:
			return true
		case b.Price != nil:
			return false
		}
		return a.ID < b.ID
	})
}

// Truncate bounds hits to MaxResults.
func Truncate(hits []Hit) []Hit {
	if len(hits) > MaxResults {
		return hits[:MaxResults]
	}
	return hits
}
