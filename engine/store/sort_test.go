package store

import "testing"

func price(v float64) *float64 { return &v }

func TestSortHits(t *testing.T) {
	hits := []Hit{
		{ID: 5, Points: 88, Price: price(30)},
		{ID: 1, Points: 92, Price: price(20)},
		{ID: 4, Points: 92},
		{ID: 3, Points: 92, Price: price(10)},
		{ID: 2, Points: 92, Price: price(10)},
	}
	SortHits(hits)

	wantIDs := []int{2, 3, 1, 4, 5}
	for i, want := range wantIDs {
		if hits[i].ID != want {
			t.Fatalf("position %d: id = %d, want %d (order %v)", i, hits[i].ID, want, ids(hits))
		}
	}
}

func TestSortHitsMissingPriceLast(t *testing.T) {
	hits := []Hit{
		{ID: 1, Points: 90},
		{ID: 2, Points: 90, Price: price(500)},
	}
	SortHits(hits)
	if hits[0].ID != 2 {
		t.Errorf("priced hit should rank before missing price: %v", ids(hits))
	}
}

func TestTruncate(t *testing.T) {
	hits := make([]Hit, MaxResults+3)
	if got := len(Truncate(hits)); got != MaxResults {
		t.Errorf("Truncate len = %d, want %d", got, MaxResults)
	}
	short := make([]Hit, 2)
	if got := len(Truncate(short)); got != 2 {
		t.Errorf("Truncate shortened a small slice to %d", got)
	}
}

func ids(hits []Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}
