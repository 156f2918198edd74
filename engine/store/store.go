// Package store defines the adapter boundary that hides each database's
// native protocol behind one uniform set of query-façade operations.
// One concrete adapter exists per backend; the façade and the ingestion
// coordinator only ever see this interface.
package store

import (
	"context"
	"errors"

	"github.com/winehub/winehub/engine/wine"
)

// MaxResults bounds every ranked query.
const MaxResults = 5

// ErrNoResults is the explicit "zero matches" signal, distinct from a
// transport-level failure.
var ErrNoResults = errors.New("no matching results")

// TopField selects the grouping field for TopBy.
type TopField string

const (
	TopCountry  TopField = "country"
	TopProvince TopField = "province"
)

// SearchQuery is a keyword search request. For vector backends the
// façade embeds Terms and sets Vector; keyword backends ignore it.
type SearchQuery struct {
	Terms    string
	Vector   []float32
	MaxPrice *float64
}

// FilterSet is the filter combination for CountByFilters.
type FilterSet struct {
	Country   string
	MinPoints int
	MaxPrice  float64
}

// Hit is the canonical response record for all ranked queries.
// Score is only set by similarity-search backends.
type Hit struct {
	ID          int      `json:"id"`
	Points      int      `json:"points"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Country     string   `json:"country"`
	Province    string   `json:"province,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Variety     string   `json:"variety,omitempty"`
	Winery      string   `json:"winery,omitempty"`
	Score       *float32 `json:"score,omitempty"`
}

// Adapter is the capability set every backend implements.
//
// BulkUpsert must have upsert-by-id semantics: submitting the same
// batch twice leaves the store in the same state as submitting it once.
// vectors is nil for backends where NeedsVectors is false; otherwise it
// is positionally aligned with recs.
type Adapter interface {
	// Init creates indexes, collections or constraints as needed.
	// Safe to call repeatedly.
	Init(ctx context.Context) error

	BulkUpsert(ctx context.Context, recs []wine.Record, vectors [][]float32) error

	// Search returns up to MaxResults hits for the query, or ErrNoResults.
	Search(ctx context.Context, q SearchQuery) ([]Hit, error)

	// TopBy returns up to MaxResults top-rated wines for an exact
	// country or province name, or ErrNoResults.
	TopBy(ctx context.Context, field TopField, value string) ([]Hit, error)

	CountByCountry(ctx context.Context, country string) (uint64, error)
	CountByFilters(ctx context.Context, f FilterSet) (uint64, error)

	// NeedsVectors reports whether ingestion must embed records for
	// this backend.
	NeedsVectors() bool

	Close(ctx context.Context) error
}

// HitFromRecord maps a canonical record onto the response shape.
func HitFromRecord(r wine.Record) Hit {
	return Hit{
		ID:          r.ID,
		Points:      r.Points,
		Title:       r.Title,
		Description: r.Description,
		Country:     r.Country,
		Province:    r.Province,
		Price:       r.Price,
		Variety:     r.Variety,
		Winery:      r.Winery,
	}
}
