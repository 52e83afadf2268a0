package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fimo"

var (
	BatchesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_applied_total",
		Help:      "Batches with at least one document applied to the target.",
	})
	DocumentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_applied_total",
		Help:      "Writes applied to the target by kind.",
	}, []string{"kind"})
	PartialBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_batches_total",
		Help:      "Batches that stopped at a failed write.",
	})
	EmptyPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "empty_polls_total",
		Help:      "Cycles that found nothing to replicate.",
	})
	RetryableErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retryable_errors_total",
		Help:      "Cycles that failed with a retryable error.",
	})
	BackoffSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backoff_seconds",
		Help:      "Current delay before the next poll.",
	})
	LastCheckpoint = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_checkpoint_timestamp_seconds",
		Help:      "Unix time of the last persisted checkpoint.",
	})
	TargetBulkCapable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "target_bulk_capable",
		Help:      "1 when the target accepts grouped writes, 0 on the per-document path.",
	})
)

// Serve exposes /metrics on address until ctx is done
func Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
