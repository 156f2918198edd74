// Package config builds the explicit process-wide configuration struct.
// It is constructed once in main and passed by reference; there is no
// hidden settings singleton. Values come from an optional YAML file,
// overridden by environment variables (a .env file is honored if present).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by -backend.
const (
	BackendElastic  = "elastic"
	BackendMeili    = "meili"
	BackendNeo4j    = "neo4j"
	BackendQdrant   = "qdrant"
	BackendWeaviate = "weaviate"
	BackendMemory   = "memory"
)

// Config holds all connection and tuning settings.
type Config struct {
	Port    int    `yaml:"port"`
	Backend string `yaml:"backend"`
	NATSURL string `yaml:"nats_url"`

	Embedding Embedding `yaml:"embedding"`
	Elastic   Elastic   `yaml:"elastic"`
	Meili     Meili     `yaml:"meili"`
	Neo4j     Neo4j     `yaml:"neo4j"`
	Qdrant    Qdrant    `yaml:"qdrant"`
	Weaviate  Weaviate  `yaml:"weaviate"`
}

// Embedding configures the sentence-embedding service.
type Embedding struct {
	// URL of the embedding server. Empty selects the local hashed
	// embedder (offline runs and tests).
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
	Dims  int    `yaml:"dims"`
}

type Elastic struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

type Meili struct {
	URL       string `yaml:"url"`
	MasterKey string `yaml:"master_key"`
	Index     string `yaml:"index"`
}

type Neo4j struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Qdrant struct {
	// Addr is the gRPC host:port.
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

type Weaviate struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
	Class  string `yaml:"class"`
}

// Default returns the baseline configuration for a local docker-compose setup.
func Default() Config {
	return Config{
		Port:    8000,
		Backend: BackendMemory,
		Embedding: Embedding{
			Model: "sentence-transformers/multi-qa-MiniLM-L6-cos-v1",
			Dims:  384,
		},
		Elastic:  Elastic{URL: "http://localhost:9200", User: "elastic", Index: "wines"},
		Meili:    Meili{URL: "http://localhost:7700", Index: "wines"},
		Neo4j:    Neo4j{URL: "neo4j://localhost:7687", User: "neo4j"},
		Qdrant:   Qdrant{Addr: "localhost:6334", Collection: "wines"},
		Weaviate: Weaviate{Host: "localhost:8080", Scheme: "http", Class: "Wine"},
	}
}

// Load builds the Config: defaults, then the YAML file at path (if any),
// then environment overrides.
func Load(path string) (Config, error) {
	// Best-effort .env, same as the python services this replaces.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr("PORT", func(v string) {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	})
	envStr("BACKEND", func(v string) { c.Backend = v })
	envStr("NATS_URL", func(v string) { c.NATSURL = v })

	envStr("EMBEDDING_URL", func(v string) { c.Embedding.URL = v })
	envStr("EMBEDDING_MODEL", func(v string) { c.Embedding.Model = v })
	envStr("EMBEDDING_DIMS", func(v string) {
		if d, err := strconv.Atoi(v); err == nil {
			c.Embedding.Dims = d
		}
	})

	envStr("ELASTIC_URL", func(v string) { c.Elastic.URL = v })
	envStr("ELASTIC_USER", func(v string) { c.Elastic.User = v })
	envStr("ELASTIC_PASSWORD", func(v string) { c.Elastic.Password = v })
	envStr("ELASTIC_INDEX", func(v string) { c.Elastic.Index = v })

	envStr("MEILI_URL", func(v string) { c.Meili.URL = v })
	envStr("MEILI_MASTER_KEY", func(v string) { c.Meili.MasterKey = v })
	envStr("MEILI_INDEX", func(v string) { c.Meili.Index = v })

	envStr("NEO4J_URL", func(v string) { c.Neo4j.URL = v })
	envStr("NEO4J_USER", func(v string) { c.Neo4j.User = v })
	envStr("NEO4J_PASSWORD", func(v string) { c.Neo4j.Password = v })

	envStr("QDRANT_ADDR", func(v string) { c.Qdrant.Addr = v })
	envStr("QDRANT_COLLECTION", func(v string) { c.Qdrant.Collection = v })

	envStr("WEAVIATE_HOST", func(v string) { c.Weaviate.Host = v })
	envStr("WEAVIATE_SCHEME", func(v string) { c.Weaviate.Scheme = v })
	envStr("WEAVIATE_CLASS", func(v string) { c.Weaviate.Class = v })
}

func envStr(key string, set func(string)) {
	if v := os.Getenv(key); v != "" {
		set(v)
	}
}

// Validate checks that the settings needed for the chosen backend are
// present. Failures here are fatal at startup, before any ingestion.
func (c *Config) Validate(backend string) error {
	switch backend {
	case BackendElastic:
		if c.Elastic.URL == "" || c.Elastic.Index == "" {
			return fmt.Errorf("config: elastic backend requires url and index")
		}
	case BackendMeili:
		if c.Meili.URL == "" || c.Meili.Index == "" {
			return fmt.Errorf("config: meili backend requires url and index")
		}
	case BackendNeo4j:
		if c.Neo4j.URL == "" || c.Neo4j.User == "" {
			return fmt.Errorf("config: neo4j backend requires url and user")
		}
		if c.Neo4j.Password == "" {
			return fmt.Errorf("config: neo4j backend requires a password")
		}
	case BackendQdrant:
		if c.Qdrant.Addr == "" || c.Qdrant.Collection == "" {
			return fmt.Errorf("config: qdrant backend requires addr and collection")
		}
	case BackendWeaviate:
		if c.Weaviate.Host == "" || c.Weaviate.Class == "" {
			return fmt.Errorf("config: weaviate backend requires host and class")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown backend %q", backend)
	}
	if c.Embedding.Dims <= 0 {
		return fmt.Errorf("config: embedding dims must be positive")
	}
	return nil
}
