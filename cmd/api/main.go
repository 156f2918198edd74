// Package main implements the wine query façade server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/winehub/winehub/engine/backends"
	"github.com/winehub/winehub/engine/embed"
	"github.com/winehub/winehub/engine/httpapi"
	"github.com/winehub/winehub/pkg/config"
	"github.com/winehub/winehub/pkg/mid"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		backend    = flag.String("backend", "", "backend to serve (elastic|meili|neo4j|qdrant|weaviate|memory)")
		port       = flag.Int("port", 0, "listen port (overrides config)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*configPath, *backend, *port, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(configPath, backend string, port int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backend == "" {
		backend = cfg.Backend
	}
	if port != 0 {
		cfg.Port = port
	}
	if err := cfg.Validate(backend); err != nil {
		return err
	}

	adapter, err := backends.Open(cfg, backend)
	if err != nil {
		return err
	}
	defer adapter.Close(ctx)

	var embedder embed.Embedder = embed.NewLocal(cfg.Embedding.Dims)
	if cfg.Embedding.URL != "" {
		embedder = embed.NewHTTP(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Dims)
	}

	mux := http.NewServeMux()
	httpapi.New(adapter, embedder, logger).Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(),
		mid.OTel("winehub-api"),
		mid.CORS("*"),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "backend", backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
