package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/store/memory"
	"github.com/winehub/winehub/engine/wine"
)

func price(v float64) *float64 { return &v }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := memory.New()
	recs := []wine.Record{
		{ID: 1, Points: 92, Title: "Stemmari Nero d'Avola", Description: "ripe plum", Variety: "Nero d'Avola", Country: "Italy", Province: "Sicily & Sardinia", Price: price(9)},
		{ID: 2, Points: 85, Title: "Basic Chardonnay", Description: "apple", Variety: "Chardonnay", Country: "Italy", Province: "Tuscany", Price: price(15)},
		{ID: 3, Points: 96, Title: "Barolo Riserva", Description: "tar and roses", Variety: "Nebbiolo", Country: "Italy", Province: "Piedmont", Price: price(120)},
	}
	if err := s.BulkUpsert(context.Background(), recs, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mux := http.NewServeMux()
	New(s, nil, nil).Routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestSearchReturnsHits(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/wine/search?terms=plum")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var hits []store.Hit
	if err := json.Unmarshal(body, &hits); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchNoMatchIs404(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/wine/search?terms=zzzz")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var msg map[string]string
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["detail"] == "" {
		t.Error("404 body should carry a descriptive detail message")
	}
}

func TestSearchMissingTermsIs400(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := get(t, ts, "/wine/search")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchBadMaxPriceIs400(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := get(t, ts, "/wine/search?terms=plum&max_price=cheap")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTopByCountryOrdering(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/wine/top_by_country?country=Italy")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var hits []store.Hit
	if err := json.Unmarshal(body, &hits); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if hits[0].ID != 3 || hits[1].ID != 1 || hits[2].ID != 2 {
		t.Errorf("order = %d,%d,%d, want points descending 3,1,2", hits[0].ID, hits[1].ID, hits[2].ID)
	}
}

func TestTopByProvinceMissingParamIs400(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := get(t, ts, "/wine/top_by_province")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCountByCountry(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/wine/count_by_country?country=Italy")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]uint64
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["count"] != 3 {
		t.Errorf("count = %d, want 3", out["count"])
	}
}

func TestCountByFiltersDefaults(t *testing.T) {
	ts := newTestServer(t)
	// Defaults points=85, price=100: wines 1 and 2 qualify, the 120
	// euro Barolo does not.
	resp, body := get(t, ts, "/wine/count_by_filters?country=Italy")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]uint64
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["count"] != 2 {
		t.Errorf("count = %d, want 2", out["count"])
	}
}

func TestCountByFiltersExplicit(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/wine/count_by_filters?country=Italy&points=90&price=20")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]uint64
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["count"] != 1 {
		t.Errorf("count = %d, want just the Nero d'Avola", out["count"])
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
