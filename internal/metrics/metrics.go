// Package metrics records request outcomes for the dashboard entry points.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels a handled request.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeInvalid Outcome = "invalid_action"
)

// Recorder receives one observation per entry-point call.
type Recorder interface {
	Observe(ctx context.Context, entry, action string, outcome Outcome, duration time.Duration)
}

// Nop discards observations.
type Nop struct{}

func (Nop) Observe(context.Context, string, string, Outcome, time.Duration) {}

// Prometheus records observations on a private registry so several servers
// can coexist in one process (tests, the admin CLI's serve command).
type Prometheus struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with Go runtime and process collectors
// registered alongside the request metrics.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeboard_requests_total",
			Help: "Dashboard entry-point calls by action and outcome.",
		}, []string{"entry", "action", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeboard_request_duration_seconds",
			Help:    "Time spent handling dashboard entry-point calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entry"}),
	}
	reg.MustRegister(
		p.requests,
		p.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Observe(_ context.Context, entry, action string, outcome Outcome, duration time.Duration) {
	p.requests.WithLabelValues(entry, action, string(outcome)).Inc()
	p.duration.WithLabelValues(entry).Observe(duration.Seconds())
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
