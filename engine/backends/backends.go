// Package backends maps a backend name to a live store adapter. It is
// the only package that imports every adapter; main stays free of
// driver wiring.
package backends

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/store/elastic"
	"github.com/winehub/winehub/engine/store/meili"
	"github.com/winehub/winehub/engine/store/memory"
	"github.com/winehub/winehub/engine/store/neo"
	"github.com/winehub/winehub/engine/store/qdrantdb"
	"github.com/winehub/winehub/engine/store/weaviatedb"
	"github.com/winehub/winehub/pkg/config"
)

// Open constructs the adapter named by backend. The caller owns the
// adapter and must Close it.
func Open(cfg config.Config, backend string) (store.Adapter, error) {
	switch backend {
	case config.BackendElastic:
		return elastic.New(cfg.Elastic.URL, cfg.Elastic.User, cfg.Elastic.Password, cfg.Elastic.Index)
	case config.BackendMeili:
		return meili.New(cfg.Meili.URL, cfg.Meili.MasterKey, cfg.Meili.Index), nil
	case config.BackendNeo4j:
		driver, err := neo4j.NewDriverWithContext(
			cfg.Neo4j.URL,
			neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""),
		)
		if err != nil {
			return nil, fmt.Errorf("backends: neo4j driver: %w", err)
		}
		return neo.New(driver), nil
	case config.BackendQdrant:
		return qdrantdb.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection, cfg.Embedding.Dims)
	case config.BackendWeaviate:
		return weaviatedb.New(cfg.Weaviate.Host, cfg.Weaviate.Scheme, cfg.Weaviate.Class)
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("backends: unknown backend %q", backend)
	}
}
