// Package elastic implements the store adapter on Elasticsearch.
// Query bodies are built as structs and JSON-encoded, so user terms are
// always escaped by the encoder rather than spliced into query text.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
)

// Store provides the façade operations on an Elasticsearch index.
type Store struct {
	client *elasticsearch.Client
	index  string
}

// New creates a Store for the given cluster and index.
func New(url, user, password, index string) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic: client: %w", err)
	}
	return &Store{client: client, index: index}, nil
}

func (s *Store) Close(context.Context) error { return nil }

// NeedsVectors reports that Elasticsearch ranks by token matching here.
func (s *Store) NeedsVectors() bool { return false }

// Init creates the index with explicit mappings; an already-existing
// index is not an error.
func (s *Store) Init(ctx context.Context) error {
	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":          map[string]any{"type": "integer"},
				"points":      map[string]any{"type": "integer"},
				"price":       map[string]any{"type": "float"},
				"title":       map[string]any{"type": "text"},
				"description": map[string]any{"type": "text"},
				"variety": map[string]any{
					"type":   "text",
					"fields": map[string]any{"keyword": map[string]any{"type": "keyword"}},
				},
				"country":  map[string]any{"type": "keyword"},
				"province": map[string]any{"type": "keyword"},
				"winery":   map[string]any{"type": "keyword"},
			},
		},
	}
	body, _ := json.Marshal(mapping)
	res, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("elastic: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		// Read the body once: it serves both the exists-check and
		// the error detail.
		detail, _ := io.ReadAll(res.Body)
		if !bytes.Contains(detail, []byte("resource_already_exists_exception")) {
			return fmt.Errorf("elastic: create index: status %s: %s", res.Status(), truncate(detail))
		}
	}
	return nil
}

// BulkUpsert indexes the batch via the _bulk API with _id = wine id,
// which makes re-submission a document replacement.
func (s *Store) BulkUpsert(ctx context.Context, recs []wine.Record, _ [][]float32) error {
	if len(recs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, r := range recs {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, s.index, strconv.Itoa(r.ID))
		buf.WriteString(meta)
		buf.WriteByte('\n')
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("elastic: marshal record %d: %w", r.ID, err)
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elastic: bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elastic: bulk: %s", res.String())
	}

	// The bulk call can succeed while individual items fail.
	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  any `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elastic: bulk decode: %w", err)
	}
	if bulkResp.Errors {
		failed := 0
		for _, item := range bulkResp.Items {
			for _, op := range item {
				if op.Status >= 300 {
					failed++
				}
			}
		}
		return fmt.Errorf("elastic: bulk: %d of %d items rejected", failed, len(recs))
	}
	return nil
}

// Search is a fuzzy multi_match over title/description/variety with an
// optional price ceiling, ranked by points.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]store.Hit, error) {
	boolQuery := map[string]any{
		"must": []any{
			map[string]any{
				"multi_match": map[string]any{
					"query":                q.Terms,
					"fields":               []string{"title", "description", "variety"},
					"minimum_should_match": 2,
					"fuzziness":            "AUTO",
				},
			},
		},
	}
	if q.MaxPrice != nil {
		boolQuery["filter"] = map[string]any{
			"range": map[string]any{"price": map[string]any{"lte": *q.MaxPrice}},
		}
	}
	return s.search(ctx, map[string]any{"bool": boolQuery})
}

// TopBy matches the exact country/province and ranks by points.
func (s *Store) TopBy(ctx context.Context, field store.TopField, value string) ([]store.Hit, error) {
	return s.search(ctx, map[string]any{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"term": map[string]any{string(field): value}},
			},
		},
	})
}

// CountByCountry counts documents with an exact country match.
func (s *Store) CountByCountry(ctx context.Context, country string) (uint64, error) {
	return s.count(ctx, map[string]any{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"term": map[string]any{"country": country}},
			},
		},
	})
}

// CountByFilters counts documents matching country, minimum points and
// maximum price.
func (s *Store) CountByFilters(ctx context.Context, f store.FilterSet) (uint64, error) {
	return s.count(ctx, map[string]any{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"term": map[string]any{"country": f.Country}},
				map[string]any{"range": map[string]any{"points": map[string]any{"gte": f.MinPoints}}},
				map[string]any{"range": map[string]any{"price": map[string]any{"lte": f.MaxPrice}}},
			},
		},
	})
}

func (s *Store) search(ctx context.Context, query map[string]any) ([]store.Hit, error) {
	body := map[string]any{
		"size":  store.MaxResults,
		"query": query,
		"sort": []any{
			map[string]any{"points": map[string]any{"order": "desc"}},
			map[string]any{"price": map[string]any{"order": "asc", "missing": "_last"}},
			map[string]any{"id": map[string]any{"order": "asc"}},
		},
	}
	data, _ := json.Marshal(body)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("elastic: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elastic: search: %s", errSummary(res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source store.Hit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elastic: search decode: %w", err)
	}
	if len(parsed.Hits.Hits) == 0 {
		return nil, store.ErrNoResults
	}
	hits := make([]store.Hit, len(parsed.Hits.Hits))
	for i, h := range parsed.Hits.Hits {
		hits[i] = h.Source
	}
	return hits, nil
}

func (s *Store) count(ctx context.Context, query map[string]any) (uint64, error) {
	data, _ := json.Marshal(map[string]any{"query": query})

	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.index),
		s.client.Count.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return 0, fmt.Errorf("elastic: count: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("elastic: count: %s", errSummary(res))
	}

	var parsed struct {
		Count uint64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("elastic: count decode: %w", err)
	}
	return parsed.Count, nil
}

func errSummary(res *esapi.Response) string {
	body, _ := io.ReadAll(res.Body)
	return fmt.Sprintf("status %s: %s", res.Status(), truncate(body))
}

func truncate(body []byte) []byte {
	if len(body) > 200 {
		return body[:200]
	}
	return body
}
