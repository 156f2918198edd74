package elastic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	s, err := New(ts.URL, "", "", "wines")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestInitTolerateExistingIndex(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"resource_already_exists_exception","reason":"index [wines] already exists"}}`))
	})
	if err := s.Init(context.Background()); err != nil {
		t.Errorf("Init on existing index: %v, want nil", err)
	}
}

func TestInitErrorKeepsResponseDetail(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"mapper_parsing_exception","reason":"bad mapping"}}`))
	})
	err := s.Init(context.Background())
	if err == nil {
		t.Fatal("Init should fail on a mapping error")
	}
	if !strings.Contains(err.Error(), "mapper_parsing_exception") {
		t.Errorf("error %q lost the response detail", err)
	}
}

func TestInitCreatesIndex(t *testing.T) {
	created := false
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/wines" {
			created = true
		}
		w.Write([]byte(`{"acknowledged":true}`))
	})
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !created {
		t.Error("Init never issued the create-index request")
	}
}
