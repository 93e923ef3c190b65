// Package telemetry exposes the engine's Prometheus metrics and an optional
// HTTP exporter, in the idiom of coreth's metrics.GetOrRegisterGauge calls
// (core/txpool/txpool.go's reserver), generalized to prometheus/client_golang
// directly since this repo doesn't carry coreth's own metrics wrapper package.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/dmalm9/payments-engine/internal/xflags"
)

var metricsAddrFlag = &cli.StringFlag{
	Name:     "metrics.addr",
	Usage:    "Serve Prometheus metrics on this address (host:port); disabled if unset",
	Category: xflags.TelemetryCategory,
}

// Flags holds all command-line flags required for metrics.
var Flags = []cli.Flag{metricsAddrFlag}

// Metrics holds the counters and gauges the engine updates while running.
// All fields are safe for concurrent use: they are Prometheus collectors.
type Metrics struct {
	EventsProcessed  *prometheus.CounterVec
	EventsRejected   *prometheus.CounterVec
	AccountsCreated  prometheus.Counter
	QueueDepth       prometheus.Gauge
	RecordsMalformed prometheus.Counter
}

// New registers a fresh set of collectors against registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments_engine",
			Name:      "events_processed_total",
			Help:      "Events successfully applied to an account, by kind.",
		}, []string{"kind"}),
		EventsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments_engine",
			Name:      "events_rejected_total",
			Help:      "Events that reached an account but were refused, by reason.",
		}, []string{"reason"}),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "payments_engine",
			Name:      "accounts_created_total",
			Help:      "Distinct accounts seen so far.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "payments_engine",
			Name:      "dispatcher_queue_depth",
			Help:      "Total number of events queued across all accounts. Not updated by the dispatcher, so it reads 0.",
		}),
		RecordsMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "payments_engine",
			Name:      "records_malformed_total",
			Help:      "Input records dropped outright by the parser (unknown type, unparseable client/tx id, too few columns, or CSV syntax error).",
		}),
	}
}

// Serve starts an HTTP server exposing registry at /metrics on addr, in the
// background, and returns a shutdown func. If addr is empty, Serve is a
// no-op and the returned shutdown func does nothing. Mirrors the optional,
// best-effort posture of the teacher's debug.StartPProf: telemetry is a
// diagnostic aid, never load-bearing for the engine's own correctness.
func Serve(addr string, registry *prometheus.Registry) (shutdown func()) {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	log.Info("Starting metrics server", "addr", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failure in running metrics server", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("Metrics server shutdown error", "err", err)
		}
	}
}
