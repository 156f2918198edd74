// Package memory is an in-process store adapter with the full façade
// semantics. It backs the test suite and the "memory" demo backend; no
// external service required.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
)

// Store keeps canonical records (and optionally their vectors) in maps
// keyed by wine id, so re-upserting an id replaces the previous row.
type Store struct {
	mu      sync.RWMutex
	records map[int]wine.Record
	vectors map[int][]float32
	vector  bool
}

// New creates a keyword-matching in-memory store.
func New() *Store {
	return &Store{
		records: make(map[int]wine.Record),
		vectors: make(map[int][]float32),
	}
}

// NewVector creates an in-memory store that requires vectors and ranks
// Search results by cosine similarity.
func NewVector() *Store {
	s := New()
	s.vector = true
	return s
}

func (s *Store) Init(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }
func (s *Store) NeedsVectors() bool          { return s.vector }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) BulkUpsert(_ context.Context, recs []wine.Record, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range recs {
		s.records[r.ID] = r
		if s.vector && vectors != nil {
			s.vectors[r.ID] = vectors[i]
		}
	}
	return nil
}

func (s *Store) Search(_ context.Context, q store.SearchQuery) ([]store.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []store.Hit
	if s.vector && q.Vector != nil {
		for id, r := range s.records {
			if !priceOK(r, q.MaxPrice) {
				continue
			}
			score := cosine(q.Vector, s.vectors[id])
			h := store.HitFromRecord(r)
			h.Score = &score
			hits = append(hits, h)
		}
		// Similarity is the primary key here; points break ties.
		sort.SliceStable(hits, func(i, j int) bool {
			if *hits[i].Score != *hits[j].Score {
				return *hits[i].Score > *hits[j].Score
			}
			return hits[i].Points > hits[j].Points
		})
	} else {
		terms := strings.Fields(strings.ToLower(q.Terms))
		for _, r := range s.records {
			if !priceOK(r, q.MaxPrice) {
				continue
			}
			if matches(r, terms) {
				hits = append(hits, store.HitFromRecord(r))
			}
		}
		store.SortHits(hits)
	}

	if len(hits) == 0 {
		return nil, store.ErrNoResults
	}
	return store.Truncate(hits), nil
}

func (s *Store) TopBy(_ context.Context, field store.TopField, value string) ([]store.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []store.Hit
	for _, r := range s.records {
		var got string
		switch field {
		case store.TopProvince:
			got = r.Province
		default:
			got = r.Country
		}
		if strings.EqualFold(got, value) {
			hits = append(hits, store.HitFromRecord(r))
		}
	}
	if len(hits) == 0 {
		return nil, store.ErrNoResults
	}
	store.SortHits(hits)
	return store.Truncate(hits), nil
}

func (s *Store) CountByCountry(_ context.Context, country string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for _, r := range s.records {
		if strings.EqualFold(r.Country, country) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountByFilters(_ context.Context, f store.FilterSet) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for _, r := range s.records {
		if !strings.EqualFold(r.Country, f.Country) {
			continue
		}
		if r.Points < f.MinPoints {
			continue
		}
		if r.Price == nil || *r.Price > f.MaxPrice {
			continue
		}
		n++
	}
	return n, nil
}

// priceOK applies the price ceiling; records with no known price are
// excluded by a ceiling, matching the range-filter semantics of the
// search backends.
func priceOK(r wine.Record, maxPrice *float64) bool {
	if maxPrice == nil {
		return true
	}
	return r.Price != nil && *r.Price <= *maxPrice
}

func matches(r wine.Record, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	haystack := strings.ToLower(r.Title + " " + r.Description + " " + r.Variety)
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
