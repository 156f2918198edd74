// Package qdrantdb implements the store adapter on Qdrant. Wine ids are
// the point ids, so upserts are idempotent by construction. Keyword
// search is replaced by nearest-neighbor search over the 384-dim
// sentence embeddings; filters are expressed as typed conditions, never
// interpolated into a query string.
package qdrantdb

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
)

// Store is the sole owner of all Qdrant operations.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dims        int
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr, collection string, dims int) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrantdb: dial %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dims:        dims,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close(context.Context) error { return s.conn.Close() }

// NeedsVectors reports that ingestion must embed records for Qdrant.
func (s *Store) NeedsVectors() bool { return true }

// Init creates the collection (cosine distance) and the payload indexes
// for the filterable fields if they don't exist yet.
func (s *Store) Init(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrantdb: list collections: %w", err)
	}
	exists := false
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			exists = true
			break
		}
	}
	if !exists {
		_, err = s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(s.dims),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("qdrantdb: create collection %s: %w", s.collection, err)
		}
	}

	indexes := map[string]pb.FieldType{
		"country":  pb.FieldType_FieldTypeKeyword,
		"province": pb.FieldType_FieldTypeKeyword,
		"variety":  pb.FieldType_FieldTypeKeyword,
		"points":   pb.FieldType_FieldTypeInteger,
		"price":    pb.FieldType_FieldTypeFloat,
	}
	for field, ft := range indexes {
		_, err := s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      ft.Enum(),
		})
		if err != nil {
			return fmt.Errorf("qdrantdb: index %s: %w", field, err)
		}
	}
	return nil
}

// BulkUpsert writes one point per record, vector aligned by position.
func (s *Store) BulkUpsert(ctx context.Context, recs []wine.Record, vectors [][]float32) error {
	if len(recs) == 0 {
		return nil
	}
	if len(vectors) != len(recs) {
		return fmt.Errorf("qdrantdb: %d vectors for %d records", len(vectors), len(recs))
	}

	points := make([]*pb.PointStruct, len(recs))
	for i, r := range recs {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Num{Num: uint64(r.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: recordPayload(r),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrantdb: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs nearest-neighbor search with an optional price ceiling.
// The engine's similarity score is the ranking; it is returned on each hit.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]store.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("qdrantdb: search requires a query vector")
	}

	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         q.Vector,
		Limit:          uint64(store.MaxResults),
		WithPayload:    withPayload(),
	}
	if q.MaxPrice != nil {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{rangeLTE("price", *q.MaxPrice)},
		}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrantdb: search: %w", err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, store.ErrNoResults
	}

	hits := make([]store.Hit, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		h := hitFromPayload(p.GetPayload())
		score := p.GetScore()
		h.Score = &score
		hits[i] = h
	}
	return hits, nil
}

// TopBy scrolls points matching the exact country/province, ordered by
// points descending on the server side.
func (s *Store) TopBy(ctx context.Context, field store.TopField, value string) ([]store.Hit, error) {
	limit := uint32(store.MaxResults)
	resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: s.collection,
		Filter: &pb.Filter{
			Must: []*pb.Condition{keywordMatch(string(field), value)},
		},
		Limit:       &limit,
		WithPayload: withPayload(),
		OrderBy: &pb.OrderBy{
			Key:       "points",
			Direction: pb.Direction_Desc.Enum(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrantdb: scroll %s=%s: %w", field, value, err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, store.ErrNoResults
	}

	hits := make([]store.Hit, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		hits[i] = hitFromPayload(p.GetPayload())
	}
	return hits, nil
}

// CountByCountry counts points for an exact country match.
func (s *Store) CountByCountry(ctx context.Context, country string) (uint64, error) {
	return s.count(ctx, &pb.Filter{
		Must: []*pb.Condition{keywordMatch("country", country)},
	})
}

// CountByFilters counts points matching country, minimum points and
// maximum price.
func (s *Store) CountByFilters(ctx context.Context, f store.FilterSet) (uint64, error) {
	return s.count(ctx, &pb.Filter{
		Must: []*pb.Condition{
			keywordMatch("country", f.Country),
			rangeGTE("points", float64(f.MinPoints)),
			rangeLTE("price", f.MaxPrice),
		},
	})
}

func (s *Store) count(ctx context.Context, filter *pb.Filter) (uint64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrantdb: count: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// --- payload plumbing ---

func recordPayload(r wine.Record) map[string]*pb.Value {
	p := map[string]*pb.Value{
		"id":      intVal(int64(r.ID)),
		"points":  intVal(int64(r.Points)),
		"title":   strVal(r.Title),
		"country": strVal(r.Country),
	}
	setStr := func(key, v string) {
		if v != "" {
			p[key] = strVal(v)
		}
	}
	setStr("description", r.Description)
	setStr("variety", r.Variety)
	setStr("winery", r.Winery)
	setStr("vineyard", r.Vineyard)
	setStr("province", r.Province)
	setStr("region_1", r.Region1)
	setStr("region_2", r.Region2)
	setStr("taster_name", r.TasterName)
	setStr("taster_twitter_handle", r.TasterTwitterHandle)
	if r.Price != nil {
		p["price"] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: *r.Price}}
	}
	return p
}

func hitFromPayload(p map[string]*pb.Value) store.Hit {
	h := store.Hit{
		ID:          int(p["id"].GetIntegerValue()),
		Points:      int(p["points"].GetIntegerValue()),
		Title:       p["title"].GetStringValue(),
		Description: p["description"].GetStringValue(),
		Country:     p["country"].GetStringValue(),
		Province:    p["province"].GetStringValue(),
		Variety:     p["variety"].GetStringValue(),
		Winery:      p["winery"].GetStringValue(),
	}
	if v, ok := p["price"]; ok {
		price := v.GetDoubleValue()
		h.Price = &price
	}
	return h
}

func strVal(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intVal(n int64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func rangeGTE(key string, v float64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Range: &pb.Range{Gte: &v},
			},
		},
	}
}

func rangeLTE(key string, v float64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Range: &pb.Range{Lte: &v},
			},
		},
	}
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{
		SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
	}
}
