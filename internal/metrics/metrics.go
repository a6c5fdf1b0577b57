// Package metrics exposes simulation counters over Prometheus.
package metrics

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"go.uber.org/zap"
)

// Metrics holds the simulation collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TradesTotal    *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	ReplayDuration prometheus.Histogram
	RealizedReturn prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "settlement_trades_total", Help: "Trade events recorded by the ledger"},
			[]string{"rule", "type"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "settlement_runs_total", Help: "Simulation runs by result"},
			[]string{"result"},
		),
		ReplayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_replay_duration_seconds",
			Help:    "Wall time of one ledger replay",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		RealizedReturn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_realized_return_pct",
			Help:    "Realized return of closed positions in percent",
			Buckets: prometheus.LinearBuckets(-10, 2.5, 9),
		}),
	}

	m.registry.MustRegister(m.TradesTotal, m.RunsTotal, m.ReplayDuration, m.RealizedReturn)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTrades counts trades by type and records the returns of sells.
func (m *Metrics) ObserveTrades(rule string, trades []types.ExecutedTrade) {
	if m == nil {
		return
	}

	for _, trade := range trades {
		m.TradesTotal.WithLabelValues(rule, string(trade.Type)).Inc()

		if trade.Return.IsSome() {
			m.RealizedReturn.Observe(trade.Return.Unwrap())
		}
	}
}

// ObserveReplay records the duration of a replay.
func (m *Metrics) ObserveReplay(elapsed time.Duration) {
	if m == nil {
		return
	}

	m.ReplayDuration.Observe(elapsed.Seconds())
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.RunsTotal.WithLabelValues(result).Inc()
}

// Serve binds addr and exposes /metrics on it in the background.
// Bind failures are returned. Later server failures are logged.
// The returned server's Addr is the bound address.
func (m *Metrics) Serve(addr string, log *logger.Logger) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to listen on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listener.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}()

	log.Info("Serving metrics", zap.String("addr", srv.Addr))

	return srv, nil
}
