// Package ingest drives bulk ingestion: it chunks the raw input into
// batches and runs parse, embed and submit stages over a bounded worker
// pool. Batches fail independently; a lost batch never aborts the run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/winehub/winehub/engine/embed"
	"github.com/winehub/winehub/engine/store"
	"github.com/winehub/winehub/engine/wine"
	"github.com/winehub/winehub/pkg/fn"
	"github.com/winehub/winehub/pkg/resilience"
)

// Options tunes the coordinator.
type Options struct {
	// ChunkSize is the number of raw records per batch.
	ChunkSize int
	// Workers bounds concurrent batch submissions.
	Workers int
	// SubmitTimeout bounds a single submission attempt.
	SubmitTimeout time.Duration
	// Retry governs re-submission of a failed batch.
	Retry fn.RetryOpts
	// RatePerSec throttles submissions across all workers; zero
	// disables throttling.
	RatePerSec float64
	// FailureHook receives the report of each batch that exhausted
	// its retries. Used to publish failed ranges for later repair.
	FailureHook func(context.Context, BatchReport)
}

// DefaultOptions mirror the tuning the benchmark runs settled on.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     1000,
		Workers:       4,
		SubmitTimeout: 60 * time.Second,
		Retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Jitter:      true,
		},
	}
}

// Coordinator owns one ingestion run against one adapter.
type Coordinator struct {
	adapter  store.Adapter
	embedder embed.Embedder
	opts     Options
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	log      *slog.Logger
}

// NewCoordinator wires a coordinator. The embedder may be nil when the
// adapter reports NeedsVectors() == false.
func NewCoordinator(adapter store.Adapter, embedder embed.Embedder, opts Options, log *slog.Logger) *Coordinator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultOptions().SubmitTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultOptions().Retry
	}
	if log == nil {
		log = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	return &Coordinator{
		adapter:  adapter,
		embedder: embedder,
		opts:     opts,
		limiter:  limiter,
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		log:      log,
	}
}

// Run ingests the raw records and returns the run accounting. The only
// error returned is a pipeline misconfiguration; batch failures land in
// the report instead.
func (c *Coordinator) Run(ctx context.Context, raw [][]byte) (Report, error) {
	if c.adapter.NeedsVectors() && c.embedder == nil {
		return Report{}, fmt.Errorf("ingest: backend requires vectors but no embedder is configured")
	}

	var batches []Batch
	for chunk := range fn.ChunkSeq(raw, c.opts.ChunkSize) {
		batches = append(batches, Batch{Index: len(batches), Raw: chunk})
	}
	c.log.Info("ingest: starting run",
		"records", len(raw),
		"batches", len(batches),
		"chunk_size", c.opts.ChunkSize,
		"workers", c.opts.Workers,
	)

	parse := fn.TracedStage("ingest.parse", c.parseStage())
	pipeline := fn.Then(
		fn.TracedStage("ingest.embed", c.embedStage()),
		fn.TracedStage("ingest.submit", c.submitStage()),
	)
	reports := fn.ParMap(batches, c.opts.Workers, func(b Batch) BatchReport {
		start := time.Now()
		br := c.runBatch(ctx, parse, pipeline, b)
		observeBatch(time.Since(start), br)
		return br
	})

	var rep Report
	for _, br := range reports {
		rep.add(br)
		if br.Failed() && c.opts.FailureHook != nil {
			c.opts.FailureHook(ctx, br)
		}
	}
	c.log.Info("ingest: run finished",
		"batches", rep.Batches,
		"ingested", rep.Ingested,
		"dropped", rep.Dropped,
		"failed_batches", len(rep.FailedB),
	)
	return rep, nil
}

// runBatch parses first so the report keeps the id range even when a
// later stage fails, then runs the embed+submit pipeline.
func (c *Coordinator) runBatch(ctx context.Context, parse fn.Stage[Batch, batchData], pipeline fn.Stage[batchData, batchData], b Batch) BatchReport {
	parsed := parse(ctx, b)
	data, _ := parsed.Unwrap()
	br := data.report()

	_, err := pipeline(ctx, data).Unwrap()
	if err != nil {
		br.Err = err
		br.ErrMsg = err.Error()
		br.Ingested = 0
		c.log.Error("ingest: batch failed",
			"batch", b.Index,
			"first_id", br.FirstID,
			"last_id", br.LastID,
			"error", err,
		)
	}
	return br
}

// parseStage validates each raw line. Invalid records are dropped and
// logged by id; they never poison the batch.
func (c *Coordinator) parseStage() fn.Stage[Batch, batchData] {
	return func(_ context.Context, b Batch) fn.Result[batchData] {
		data := batchData{batch: b}
		for _, line := range b.Raw {
			rec, err := wine.Parse(line)
			if err != nil {
				id := wine.PeekID(line)
				data.dropped = append(data.dropped, id)
				recordsDropped.Inc()
				c.log.Warn("ingest: dropping record",
					"batch", b.Index,
					"id", id,
					"error", err,
				)
				continue
			}
			data.records = append(data.records, rec)
		}
		return fn.Ok(data)
	}
}

// embedStage produces one vector per record, order-aligned, when the
// backend needs them.
func (c *Coordinator) embedStage() fn.Stage[batchData, batchData] {
	return func(ctx context.Context, data batchData) fn.Result[batchData] {
		if !c.adapter.NeedsVectors() || len(data.records) == 0 {
			return fn.Ok(data)
		}
		texts := fn.Map(data.records, wine.Record.ToVectorize)
		vectors, err := c.embedder.Embed(ctx, texts)
		if err != nil {
			return fn.Err[batchData](fmt.Errorf("embed batch %d: %w", data.batch.Index, err))
		}
		if len(vectors) != len(data.records) {
			return fn.Errf[batchData]("embed batch %d: %d vectors for %d records",
				data.batch.Index, len(vectors), len(data.records))
		}
		data.vectors = vectors
		return fn.Ok(data)
	}
}

// submitStage pushes the batch through the rate limiter, the circuit
// breaker, and per-attempt timeouts, retrying with backoff.
func (c *Coordinator) submitStage() fn.Stage[batchData, batchData] {
	return func(ctx context.Context, data batchData) fn.Result[batchData] {
		if len(data.records) == 0 {
			return fn.Ok(data)
		}
		result := fn.Retry(ctx, c.opts.Retry, func(ctx context.Context) fn.Result[batchData] {
			if err := c.limiter.Wait(ctx); err != nil {
				return fn.Err[batchData](err)
			}
			err := c.breaker.Call(ctx, func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
				defer cancel()
				return c.adapter.BulkUpsert(ctx, data.records, data.vectors)
			})
			if err != nil {
				return fn.Err[batchData](err)
			}
			return fn.Ok(data)
		})
		if result.IsOk() {
			recordsIngested.Add(float64(len(data.records)))
		}
		return result
	}
}
