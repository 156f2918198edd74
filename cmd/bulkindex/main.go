// Package main implements the bulk-ingestion CLI: it reads a gzip JSONL
// dump of wine reviews and loads it into the chosen backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/winehub/winehub/engine/backends"
	"github.com/winehub/winehub/engine/embed"
	"github.com/winehub/winehub/engine/ingest"
	"github.com/winehub/winehub/pkg/config"
	"github.com/winehub/winehub/pkg/natsutil"
)

// FailedBatchSubject carries failed-batch reports for later repair.
const FailedBatchSubject = "winehub.ingest.failed"

func main() {
	var (
		filename   = flag.String("filename", "winemag-data.json.gz", "gzip JSONL dump to ingest")
		limit      = flag.Int("limit", 0, "max records to read (0 = all)")
		chunkSize  = flag.Int("chunksize", 1000, "records per batch")
		workers    = flag.Int("workers", 4, "concurrent batch submissions")
		backend    = flag.String("backend", "", "target backend (elastic|meili|neo4j|qdrant|weaviate|memory)")
		configPath = flag.String("config", "", "path to YAML config file")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*filename, *limit, *chunkSize, *workers, *backend, *configPath, logger); err != nil {
		logger.Error("bulkindex failed", "err", err)
		os.Exit(1)
	}
}

func run(filename string, limit, chunkSize, workers int, backend, configPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backend == "" {
		backend = cfg.Backend
	}
	if err := cfg.Validate(backend); err != nil {
		return err
	}

	raw, err := ingest.ReadJSONL(filename, limit)
	if err != nil {
		return err
	}
	logger.Info("loaded input", "file", filename, "records", len(raw))

	adapter, err := backends.Open(cfg, backend)
	if err != nil {
		return err
	}
	defer adapter.Close(ctx)

	if err := adapter.Init(ctx); err != nil {
		return fmt.Errorf("init %s backend: %w", backend, err)
	}

	var embedder embed.Embedder
	if adapter.NeedsVectors() {
		embedder = embed.NewLocal(cfg.Embedding.Dims)
		if cfg.Embedding.URL != "" {
			embedder = embed.NewHTTP(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Dims)
		}
	}

	opts := ingest.DefaultOptions()
	opts.ChunkSize = chunkSize
	opts.Workers = workers
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		opts.FailureHook = func(ctx context.Context, br ingest.BatchReport) {
			if err := natsutil.Publish(ctx, nc, FailedBatchSubject, br); err != nil {
				logger.Error("failed-batch publish", "batch", br.Index, "err", err)
			}
		}
	}

	coord := ingest.NewCoordinator(adapter, embedder, opts, logger)
	report, err := coord.Run(ctx, raw)
	if err != nil {
		return err
	}

	// Partial batch failure is reported, not fatal; the failed id
	// ranges below are what a repair run needs.
	fmt.Println(report.Summary())
	return nil
}
