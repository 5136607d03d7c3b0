package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts orchestrator runs by outcome (ok, failed, preflight_failed, fetch_failed).
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpublisher_runs_total",
			Help: "Total number of orchestrator runs",
		},
		[]string{"outcome"},
	)

	// EntriesTotal counts entries by outcome (published, failed, skipped).
	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpublisher_entries_total",
			Help: "Total number of feed entries handled",
		},
		[]string{"outcome"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpublisher_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedpublisher_last_run_timestamp_seconds",
			Help: "Unix time at which the last run finished",
		},
	)
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, errorLog *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          errorLog,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
