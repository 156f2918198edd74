// Package meili implements the store adapter on Meilisearch. Documents
// are keyed by the wine id primary key, so adding a batch twice is a
// replacement. Filter expressions quote values through escapeFilter;
// nothing user-supplied reaches a filter string unescaped.
package meili

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
)

// Store provides the façade operations on a Meilisearch index.
type Store struct {
	client meilisearch.ServiceManager
	index  string
}

// New creates a Store for the given host and index uid.
func New(host, apiKey, index string) *Store {
	return &Store{
		client: meilisearch.New(host, meilisearch.WithAPIKey(apiKey)),
		index:  index,
	}
}

func (s *Store) Close(context.Context) error {
	s.client.Close()
	return nil
}

// NeedsVectors reports that Meilisearch ranks by its own relevance.
func (s *Store) NeedsVectors() bool { return false }

// Init creates the index and configures which attributes are
// searchable, filterable and sortable.
func (s *Store) Init(ctx context.Context) error {
	task, err := s.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	if err != nil {
		return fmt.Errorf("meili: create index: %w", err)
	}
	// index_already_exists surfaces as a failed task, which is fine.
	if _, err := s.client.WaitForTaskWithContext(ctx, task.TaskUID, 0); err != nil {
		return fmt.Errorf("meili: create index: %w", err)
	}

	settings := meilisearch.Settings{
		SearchableAttributes: []string{"title", "description", "variety"},
		FilterableAttributes: []string{"country", "province", "points", "price"},
		SortableAttributes:   []string{"points", "price", "id"},
	}
	task, err = s.client.Index(s.index).UpdateSettingsWithContext(ctx, &settings)
	if err != nil {
		return fmt.Errorf("meili: update settings: %w", err)
	}
	if err := s.waitSucceeded(ctx, task.TaskUID); err != nil {
		return fmt.Errorf("meili: update settings: %w", err)
	}
	return nil
}

// BulkUpsert adds the batch and waits for the indexing task, so a
// rejected batch is reported to the caller instead of failing silently
// inside Meilisearch's task queue.
func (s *Store) BulkUpsert(ctx context.Context, recs []wine.Record, _ [][]float32) error {
	if len(recs) == 0 {
		return nil
	}
	task, err := s.client.Index(s.index).AddDocumentsWithContext(ctx, recs)
	if err != nil {
		return fmt.Errorf("meili: add %d documents: %w", len(recs), err)
	}
	if err := s.waitSucceeded(ctx, task.TaskUID); err != nil {
		return fmt.Errorf("meili: add %d documents: %w", len(recs), err)
	}
	return nil
}

// Search runs a keyword query with an optional price ceiling, ranked by
// points with the canonical tie-break.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]store.Hit, error) {
	req := &meilisearch.SearchRequest{
		Limit: store.MaxResults,
		Sort:  []string{"points:desc", "price:asc", "id:asc"},
	}
	if q.MaxPrice != nil {
		req.Filter = fmt.Sprintf("price <= %v", *q.MaxPrice)
	}
	return s.search(ctx, q.Terms, req)
}

// TopBy filters on the exact country/province and ranks by points.
func (s *Store) TopBy(ctx context.Context, field store.TopField, value string) ([]store.Hit, error) {
	req := &meilisearch.SearchRequest{
		Limit:  store.MaxResults,
		Sort:   []string{"points:desc", "price:asc", "id:asc"},
		Filter: fmt.Sprintf("%s = '%s'", field, escapeFilter(value)),
	}
	return s.search(ctx, "", req)
}

// CountByCountry counts documents with an exact country match.
func (s *Store) CountByCountry(ctx context.Context, country string) (uint64, error) {
	return s.count(ctx, fmt.Sprintf("country = '%s'", escapeFilter(country)))
}

// CountByFilters counts documents matching country, minimum points and
// maximum price.
func (s *Store) CountByFilters(ctx context.Context, f store.FilterSet) (uint64, error) {
	return s.count(ctx, fmt.Sprintf(
		"country = '%s' AND points >= %d AND price <= %v",
		escapeFilter(f.Country), f.MinPoints, f.MaxPrice,
	))
}

func (s *Store) search(ctx context.Context, query string, req *meilisearch.SearchRequest) ([]store.Hit, error) {
	resp, err := s.client.Index(s.index).SearchWithContext(ctx, query, req)
	if err != nil {
		return nil, fmt.Errorf("meili: search: %w", err)
	}
	if len(resp.Hits) == 0 {
		return nil, store.ErrNoResults
	}

	hits := make([]store.Hit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		// Hits arrive as decoded JSON maps; round-trip into the
		// typed hit.
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("meili: hit: %w", err)
		}
		var h store.Hit
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, fmt.Errorf("meili: hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// count asks for one hit per page, which makes Meilisearch compute the
// exhaustive TotalHits instead of the estimate.
func (s *Store) count(ctx context.Context, filter string) (uint64, error) {
	resp, err := s.client.Index(s.index).SearchWithContext(ctx, "", &meilisearch.SearchRequest{
		Filter:      filter,
		HitsPerPage: 1,
		Page:        1,
	})
	if err != nil {
		return 0, fmt.Errorf("meili: count: %w", err)
	}
	return uint64(resp.TotalHits), nil
}

func (s *Store) waitSucceeded(ctx context.Context, taskUID int64) error {
	task, err := s.client.WaitForTaskWithContext(ctx, taskUID, 200*time.Millisecond)
	if err != nil {
		return err
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("task %d %s: %s", taskUID, task.Status, task.Error.Message)
	}
	return nil
}

func escapeFilter(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
