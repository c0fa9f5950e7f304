// Package metrics exposes Prometheus collectors for the Host runtime,
// following the CounterVec/HistogramVec + MustRegister idiom of
// trellis's examples/structured-logging/main.go, generalized from a
// one-off demo into a reusable Registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Registry holds every collector the Host runtime records against.
type Registry struct {
	reg *prometheus.Registry

	TransactionsStarted   *prometheus.CounterVec
	TransactionsCompleted *prometheus.CounterVec
	PageSends             *prometheus.CounterVec
	ResendAttempts        *prometheus.CounterVec
	PingLatency           prometheus.Histogram
	Reconnects            prometheus.Counter
}

// New builds and registers a fresh Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		TransactionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostsdk_transactions_started_total",
			Help: "Total number of START_TRANSACTION calls admitted.",
		}, []string{"slug"}),
		TransactionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostsdk_transactions_completed_total",
			Help: "Total number of MARK_TRANSACTION_COMPLETE sends, by result status.",
		}, []string{"slug", "status"}),
		PageSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostsdk_page_sends_total",
			Help: "Total number of SEND_PAGE attempts, by outcome.",
		}, []string{"outcome"}),
		ResendAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostsdk_resend_attempts_total",
			Help: "Total number of pending-artifact resend attempts, by kind.",
		}, []string{"kind"}),
		PingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostsdk_ping_latency_seconds",
			Help:    "Round-trip latency of the Host Session ping loop.",
			Buckets: prometheus.DefBuckets,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostsdk_reconnects_total",
			Help: "Total number of times the Host Session re-established its socket.",
		}),
	}

	reg.MustRegister(
		r.TransactionsStarted,
		r.TransactionsCompleted,
		r.PageSends,
		r.ResendAttempts,
		r.PingLatency,
		r.Reconnects,
	)
	return r
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
