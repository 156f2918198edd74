// Package weaviatedb implements the store adapter on Weaviate. Objects
// get deterministic UUIDs derived from the wine id, so re-batching a
// record overwrites the previous object. The class is created with
// vectorizer "none"; vectors are supplied by the ingestion pipeline and
// keyword search is replaced by nearVector search.
package weaviatedb

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
)

// Namespace for the deterministic object UUIDs.
var idNamespace = uuid.MustParse("7f9a2b66-1f0e-4c6f-9a32-4a6f1f2d8c11")

// Store provides the façade operations on a Weaviate class.
type Store struct {
	client *weaviate.Client
	class  string
}

// New creates a Store for the given host and class.
func New(host, scheme, class string) (*Store, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   host,
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("weaviatedb: client: %w", err)
	}
	return &Store{client: client, class: class}, nil
}

func (s *Store) Close(context.Context) error { return nil }

// NeedsVectors reports that ingestion must embed records for Weaviate.
func (s *Store) NeedsVectors() bool { return true }

// Init creates the class schema if it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(s.class).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviatedb: check class: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "wineID", DataType: []string{"int"}},
			{Name: "points", DataType: []string{"int"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "description", DataType: []string{"text"}},
			{Name: "price", DataType: []string{"number"}},
			{Name: "variety", DataType: []string{"text"}},
			{Name: "winery", DataType: []string{"text"}},
			{Name: "country", DataType: []string{"text"}},
			{Name: "province", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("weaviatedb: create class %s: %w", s.class, err)
	}
	return nil
}

// BulkUpsert batches the records with vectors aligned by position.
func (s *Store) BulkUpsert(ctx context.Context, recs []wine.Record, vectors [][]float32) error {
	if len(recs) == 0 {
		return nil
	}
	if len(vectors) != len(recs) {
		return fmt.Errorf("weaviatedb: %d vectors for %d records", len(vectors), len(recs))
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for i, r := range recs {
		batcher = batcher.WithObjects(&models.Object{
			Class:      s.class,
			ID:         objectID(r.ID),
			Vector:     vectors[i],
			Properties: recordProps(r),
		})
	}

	resp, err := batcher.Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviatedb: batch %d objects: %w", len(recs), err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviatedb: batch object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Search runs nearVector search with an optional price ceiling. The
// certainty is the ranking and is returned as the score on each hit.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]store.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("weaviatedb: search requires a query vector")
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(q.Vector)
	query := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(hitFields()...).
		WithNearVector(nearVector).
		WithLimit(store.MaxResults)
	if q.MaxPrice != nil {
		query = query.WithWhere(filters.Where().
			WithPath([]string{"price"}).
			WithOperator(filters.LessThanEqual).
			WithValueNumber(*q.MaxPrice))
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviatedb: search: %w", err)
	}
	return s.parseHits(resp, true)
}

// TopBy filters on the exact country/province and sorts by points.
func (s *Store) TopBy(ctx context.Context, field store.TopField, value string) ([]store.Hit, error) {
	resp, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(hitFields()...).
		WithWhere(filters.Where().
			WithPath([]string{string(field)}).
			WithOperator(filters.Equal).
			WithValueText(value)).
		WithSort(
			graphql.Sort{Path: []string{"points"}, Order: graphql.Desc},
			graphql.Sort{Path: []string{"price"}, Order: graphql.Asc},
			graphql.Sort{Path: []string{"wineID"}, Order: graphql.Asc},
		).
		WithLimit(store.MaxResults).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviatedb: top by %s: %w", field, err)
	}
	return s.parseHits(resp, false)
}

// CountByCountry counts objects with an exact country match.
func (s *Store) CountByCountry(ctx context.Context, country string) (uint64, error) {
	return s.count(ctx, filters.Where().
		WithPath([]string{"country"}).
		WithOperator(filters.Equal).
		WithValueText(country))
}

// CountByFilters counts objects matching country, minimum points and
// maximum price.
func (s *Store) CountByFilters(ctx context.Context, f store.FilterSet) (uint64, error) {
	return s.count(ctx, filters.Where().WithOperator(filters.And).WithOperands(
		[]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"country"}).
				WithOperator(filters.Equal).
				WithValueText(f.Country),
			filters.Where().
				WithPath([]string{"points"}).
				WithOperator(filters.GreaterThanEqual).
				WithValueInt(int64(f.MinPoints)),
			filters.Where().
				WithPath([]string{"price"}).
				WithOperator(filters.LessThanEqual).
				WithValueNumber(f.MaxPrice),
		}))
}

func (s *Store) count(ctx context.Context, where *filters.WhereBuilder) (uint64, error) {
	meta := graphql.Field{
		Name:   "meta",
		Fields: []graphql.Field{{Name: "count"}},
	}
	resp, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithWhere(where).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviatedb: count: %w", err)
	}
	if len(resp.Errors) > 0 {
		return 0, fmt.Errorf("weaviatedb: count: %s", resp.Errors[0].Message)
	}

	// Aggregate -> {Class} -> [ {meta: {count}} ]
	agg, ok := resp.Data["Aggregate"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("weaviatedb: count: malformed response")
	}
	rows, ok := agg[s.class].([]any)
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, _ := rows[0].(map[string]any)
	metaMap, _ := row["meta"].(map[string]any)
	n, _ := metaMap["count"].(float64)
	return uint64(n), nil
}

func (s *Store) parseHits(resp *models.GraphQLResponse, withScore bool) ([]store.Hit, error) {
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviatedb: %s", resp.Errors[0].Message)
	}
	get, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("weaviatedb: malformed response")
	}
	rows, ok := get[s.class].([]any)
	if !ok || len(rows) == 0 {
		return nil, store.ErrNoResults
	}

	hits := make([]store.Hit, 0, len(rows))
	for _, raw := range rows {
		props, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		h := hitFromProps(props)
		if withScore {
			if add, ok := props["_additional"].(map[string]any); ok {
				if c, ok := add["certainty"].(float64); ok {
					score := float32(c)
					h.Score = &score
				}
			}
		}
		hits = append(hits, h)
	}
	if len(hits) == 0 {
		return nil, store.ErrNoResults
	}
	return hits, nil
}

func hitFields() []graphql.Field {
	return []graphql.Field{
		{Name: "wineID"},
		{Name: "points"},
		{Name: "title"},
		{Name: "description"},
		{Name: "price"},
		{Name: "variety"},
		{Name: "winery"},
		{Name: "country"},
		{Name: "province"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}
}

func hitFromProps(props map[string]any) store.Hit {
	h := store.Hit{}
	if v, ok := props["wineID"].(float64); ok {
		h.ID = int(v)
	}
	if v, ok := props["points"].(float64); ok {
		h.Points = int(v)
	}
	if v, ok := props["title"].(string); ok {
		h.Title = v
	}
	if v, ok := props["description"].(string); ok {
		h.Description = v
	}
	if v, ok := props["variety"].(string); ok {
		h.Variety = v
	}
	if v, ok := props["winery"].(string); ok {
		h.Winery = v
	}
	if v, ok := props["country"].(string); ok {
		h.Country = v
	}
	if v, ok := props["province"].(string); ok {
		h.Province = v
	}
	if v, ok := props["price"].(float64); ok {
		h.Price = &v
	}
	return h
}

func recordProps(r wine.Record) map[string]any {
	props := map[string]any{
		"wineID":  r.ID,
		"points":  r.Points,
		"title":   r.Title,
		"country": r.Country,
	}
	set := func(key, v string) {
		if v != "" {
			props[key] = v
		}
	}
	set("description", r.Description)
	set("variety", r.Variety)
	set("winery", r.Winery)
	set("province", r.Province)
	if r.Price != nil {
		props["price"] = *r.Price
	}
	return props
}

// objectID derives a stable UUID from the wine id.
func objectID(id int) strfmt.UUID {
	u := uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("wine-%d", id)))
	return strfmt.UUID(strings.ToLower(u.String()))
}
