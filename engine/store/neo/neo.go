// Package neo implements the store adapter on Neo4j. Records become a
// small graph: Wine nodes linked to Country, Province and Person
// (taster) nodes, with a fulltext index over title/description/variety
// for keyword search. All values travel as Cypher parameters.
package neo

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
)

// Store provides the façade operations on top of a Neo4j driver.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a Store. The driver is owned by the caller's main and
// closed there.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

func (s *Store) Close(ctx context.Context) error { return s.driver.Close(ctx) }

// NeedsVectors reports that Neo4j uses its fulltext index, not vectors.
func (s *Store) NeedsVectors() bool { return false }

// Init creates the uniqueness constraints and indexes, including the
// fulltext index backing keyword search.
func (s *Store) Init(ctx context.Context) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT wineID IF NOT EXISTS FOR (w:Wine) REQUIRE w.wineID IS UNIQUE`,
		`CREATE CONSTRAINT countryName IF NOT EXISTS FOR (c:Country) REQUIRE c.countryName IS UNIQUE`,
		`CREATE INDEX provinceName IF NOT EXISTS FOR (p:Province) ON (p.provinceName)`,
		`CREATE INDEX tasterName IF NOT EXISTS FOR (p:Person) ON (p.tasterName)`,
		`CREATE FULLTEXT INDEX searchText IF NOT EXISTS FOR (w:Wine) ON EACH [w.title, w.description, w.variety]`,
	}
	for _, q := range queries {
		if _, err := sess.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("neo: init: %w", err)
		}
	}
	return nil
}

// The optional province and taster blocks use conditional FOREACH
// instead of WITH ... WHERE: a row filter would drop the record from
// every later block, not just the one it guards.
const upsertCypher = `
UNWIND $data AS record
MERGE (wine:Wine {wineID: record.id})
	SET wine += {
		points: record.points,
		title: record.title,
		description: record.description,
		price: record.price,
		variety: record.variety,
		winery: record.winery,
		vineyard: record.vineyard,
		region_1: record.region_1,
		region_2: record.region_2
	}
MERGE (country:Country {countryName: record.country})
MERGE (wine)-[:IS_FROM_COUNTRY]->(country)
FOREACH (_ IN CASE WHEN record.province IS NOT NULL THEN [1] ELSE [] END |
	MERGE (province:Province {provinceName: record.province})
	MERGE (wine)-[:IS_FROM_PROVINCE]->(province)
	MERGE (province)-[:IS_LOCATED_IN]->(country)
)
FOREACH (_ IN CASE WHEN record.taster_name IS NOT NULL THEN [1] ELSE [] END |
	MERGE (taster:Person {tasterName: record.taster_name})
	SET taster.tasterTwitterHandle = record.taster_twitter_handle
	MERGE (wine)-[:TASTED_BY]->(taster)
)`

// BulkUpsert merges the whole batch in one write transaction. MERGE on
// wineID makes re-submission idempotent.
func (s *Store) BulkUpsert(ctx context.Context, recs []wine.Record, _ [][]float32) error {
	if len(recs) == 0 {
		return nil
	}
	data := make([]map[string]any, len(recs))
	for i, r := range recs {
		data[i] = recordMap(r)
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, upsertCypher, map[string]any{"data": data})
	})
	if err != nil {
		return fmt.Errorf("neo: bulk upsert %d records: %w", len(recs), err)
	}
	return nil
}

// Search queries the fulltext index, applies the price ceiling, and
// ranks by points with the canonical tie-break.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]store.Hit, error) {
	cypher := `
		CALL db.index.fulltext.queryNodes('searchText', $terms) YIELD node AS wine
		WHERE $maxPrice IS NULL OR (wine.price IS NOT NULL AND wine.price <= $maxPrice)
		MATCH (wine)-[:IS_FROM_COUNTRY]->(c:Country)
		OPTIONAL MATCH (wine)-[:IS_FROM_PROVINCE]->(p:Province)
		RETURN wine, c.countryName AS country, p.provinceName AS province
		ORDER BY wine.points DESC, wine.price ASC, wine.wineID ASC
		LIMIT $limit`

	var maxPrice any
	if q.MaxPrice != nil {
		maxPrice = *q.MaxPrice
	}
	return s.queryHits(ctx, cypher, map[string]any{
		"terms":    q.Terms,
		"maxPrice": maxPrice,
		"limit":    store.MaxResults,
	})
}

// TopBy traverses from the exact Country or Province node.
func (s *Store) TopBy(ctx context.Context, field store.TopField, value string) ([]store.Hit, error) {
	var match string
	switch field {
	case store.TopProvince:
		match = `MATCH (wine:Wine)-[:IS_FROM_PROVINCE]->(:Province {provinceName: $value})`
	default:
		match = `MATCH (wine:Wine)-[:IS_FROM_COUNTRY]->(:Country {countryName: $value})`
	}
	cypher := match + `
		MATCH (wine)-[:IS_FROM_COUNTRY]->(c:Country)
		OPTIONAL MATCH (wine)-[:IS_FROM_PROVINCE]->(p:Province)
		RETURN wine, c.countryName AS country, p.provinceName AS province
		ORDER BY wine.points DESC, wine.price ASC, wine.wineID ASC
		LIMIT $limit`

	return s.queryHits(ctx, cypher, map[string]any{
		"value": value,
		"limit": store.MaxResults,
	})
}

// CountByCountry counts wines linked to the exact country.
func (s *Store) CountByCountry(ctx context.Context, country string) (uint64, error) {
	cypher := `
		MATCH (w:Wine)-[:IS_FROM_COUNTRY]->(:Country {countryName: $country})
		RETURN count(w) AS n`
	return s.queryCount(ctx, cypher, map[string]any{"country": country})
}

// CountByFilters counts wines matching country, minimum points, and
// maximum price. Wines without a price never pass a price ceiling.
func (s *Store) CountByFilters(ctx context.Context, f store.FilterSet) (uint64, error) {
	cypher := `
		MATCH (w:Wine)-[:IS_FROM_COUNTRY]->(:Country {countryName: $country})
		WHERE w.points >= $points AND w.price IS NOT NULL AND w.price <= $price
		RETURN count(w) AS n`
	return s.queryCount(ctx, cypher, map[string]any{
		"country": f.Country,
		"points":  f.MinPoints,
		"price":   f.MaxPrice,
	})
}

func (s *Store) queryHits(ctx context.Context, cypher string, params map[string]any) ([]store.Hit, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	hits, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []store.Hit
		for result.Next(ctx) {
			rec := result.Record()
			nodeVal, ok := rec.Get("wine")
			if !ok {
				continue
			}
			node, ok := nodeVal.(dbtype.Node)
			if !ok {
				continue
			}
			h := hitFromProps(node.Props)
			if v, ok := rec.Get("country"); ok {
				if s, ok := v.(string); ok {
					h.Country = s
				}
			}
			if v, ok := rec.Get("province"); ok {
				if s, ok := v.(string); ok {
					h.Province = s
				}
			}
			out = append(out, h)
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("neo: query: %w", err)
	}
	list := hits.([]store.Hit)
	if len(list) == 0 {
		return nil, store.ErrNoResults
	}
	return list, nil
}

func (s *Store) queryCount(ctx context.Context, cypher string, params map[string]any) (uint64, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	n, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		rec, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := rec.Get("n")
		count, _ := v.(int64)
		return uint64(count), nil
	})
	if err != nil {
		return 0, fmt.Errorf("neo: count: %w", err)
	}
	return n.(uint64), nil
}

// recordMap builds the UNWIND payload. Optional fields are nil (not
// empty strings) so the Cypher IS NOT NULL guards work.
func recordMap(r wine.Record) map[string]any {
	m := map[string]any{
		"id":      r.ID,
		"points":  r.Points,
		"title":   r.Title,
		"country": r.Country,
	}
	opt := func(key, v string) {
		if v != "" {
			m[key] = v
		} else {
			m[key] = nil
		}
	}
	opt("description", r.Description)
	opt("variety", r.Variety)
	opt("winery", r.Winery)
	opt("vineyard", r.Vineyard)
	opt("province", r.Province)
	opt("region_1", r.Region1)
	opt("region_2", r.Region2)
	opt("taster_name", r.TasterName)
	opt("taster_twitter_handle", r.TasterTwitterHandle)
	if r.Price != nil {
		m["price"] = *r.Price
	} else {
		m["price"] = nil
	}
	return m
}

func hitFromProps(props map[string]any) store.Hit {
	h := store.Hit{}
	if v, ok := props["wineID"].(int64); ok {
		h.ID = int(v)
	}
	if v, ok := props["points"].(int64); ok {
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
	if v, ok := props["price"].(float64); ok {
		h.Price = &v
	}
	return h
}
