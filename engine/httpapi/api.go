// Package httpapi exposes the query façade. One set of handlers serves
// every backend; the adapter chosen at startup decides how each
// operation executes.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/winehub/winehub/engine/embed"
	"github.com/winehub/winehub/engine/store"
)

// Defaults match the service this replaces.
const (
	DefaultMaxPrice  = 10000.0
	DefaultMinPoints = 85
	DefaultPrice     = 100.0
)

// Server holds the façade's dependencies.
type Server struct {
	adapter  store.Adapter
	embedder embed.Embedder
	log      *slog.Logger
}

// New wires a Server. The embedder is only consulted when the adapter
// reports NeedsVectors().
func New(adapter store.Adapter, embedder embed.Embedder, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{adapter: adapter, embedder: embedder, log: log}
}

// Routes registers all façade endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /wine/search", s.handleSearch)
	mux.HandleFunc("GET /wine/top_by_country", s.handleTopByCountry)
	mux.HandleFunc("GET /wine/top_by_province", s.handleTopByProvince)
	mux.HandleFunc("GET /wine/count_by_country", s.handleCountByCountry)
	mux.HandleFunc("GET /wine/count_by_filters", s.handleCountByFilters)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query().Get("terms")
	if terms == "" {
		badRequest(w, "missing required query parameter: terms")
		return
	}
	maxPrice := DefaultMaxPrice
	if v := r.URL.Query().Get("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 {
			badRequest(w, "max_price must be a non-negative number")
			return
		}
		maxPrice = p
	}

	q := store.SearchQuery{Terms: terms, MaxPrice: &maxPrice}
	if s.adapter.NeedsVectors() {
		vecs, err := s.embedder.Embed(r.Context(), []string{terms})
		if err != nil {
			s.upstreamError(w, r, "embed", err)
			return
		}
		q.Vector = vecs[0]
	}

	hits, err := s.adapter.Search(r.Context(), q)
	if err != nil {
		s.queryError(w, r, err, "no wines matched the given terms")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleTopByCountry(w http.ResponseWriter, r *http.Request) {
	s.handleTopBy(w, r, store.TopCountry, "country")
}

func (s *Server) handleTopByProvince(w http.ResponseWriter, r *http.Request) {
	s.handleTopBy(w, r, store.TopProvince, "province")
}

func (s *Server) handleTopBy(w http.ResponseWriter, r *http.Request, field store.TopField, param string) {
	value := r.URL.Query().Get(param)
	if value == "" {
		badRequest(w, "missing required query parameter: "+param)
		return
	}
	hits, err := s.adapter.TopBy(r.Context(), field, value)
	if err != nil {
		s.queryError(w, r, err, "no wines found for "+param+" "+value)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleCountByCountry(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		badRequest(w, "missing required query parameter: country")
		return
	}
	n, err := s.adapter.CountByCountry(r.Context(), country)
	if err != nil {
		s.upstreamError(w, r, "count_by_country", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": n})
}

func (s *Server) handleCountByFilters(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		badRequest(w, "missing required query parameter: country")
		return
	}
	f := store.FilterSet{
		Country:   country,
		MinPoints: DefaultMinPoints,
		MaxPrice:  DefaultPrice,
	}
	if v := r.URL.Query().Get("points"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "points must be an integer")
			return
		}
		f.MinPoints = p
	}
	if v := r.URL.Query().Get("price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 {
			badRequest(w, "price must be a non-negative number")
			return
		}
		f.MaxPrice = p
	}

	n, err := s.adapter.CountByFilters(r.Context(), f)
	if err != nil {
		s.upstreamError(w, r, "count_by_filters", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": n})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryError maps the empty-result sentinel to 404 and everything else
// to 502; the backend being down is not the client's fault.
func (s *Server) queryError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNoResults) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": notFoundMsg})
		return
	}
	s.upstreamError(w, r, r.URL.Path, err)
}

func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error("httpapi: upstream failure", "op", op, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "backend query failed"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
