package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winehub_ingest_records_ingested_total",
		Help: "Records durably submitted to the backend.",
	})
	recordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winehub_ingest_records_dropped_total",
		Help: "Records dropped during validation.",
	})
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winehub_ingest_batches_total",
		Help: "Batches processed, by result.",
	}, []string{"result"})
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "winehub_ingest_batch_duration_seconds",
		Help:    "Wall time per batch, including retries.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

func observeBatch(d time.Duration, br BatchReport) {
	batchDuration.Observe(d.Seconds())
	if br.Failed() {
		batchesTotal.WithLabelValues("failed").Inc()
	} else {
		batchesTotal.WithLabelValues("ok").Inc()
	}
}
