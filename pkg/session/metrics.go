package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded per initialization.
const (
	OutcomeReuse           = "reuse"
	OutcomeBootstrap       = "bootstrap"
	OutcomeBootstrapFailed = "bootstrap_failed"
	OutcomeFallback        = "fallback"
	OutcomeFailOpen        = "fail_open"
)

// Metrics holds the session Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Initializations   *prometheus.CounterVec
	BootstrapDuration prometheus.Histogram
	TouchDropped      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Initializations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nectar",
				Subsystem: "session",
				Name:      "initializations_total",
				Help:      "Session initializations by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		BootstrapDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nectar",
				Subsystem: "session",
				Name:      "bootstrap_duration_seconds",
				Help:      "Time spent calling the identity service",
				Buckets:   prometheus.DefBuckets,
			},
		),
		TouchDropped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "nectar",
				Subsystem: "session",
				Name:      "touch_dropped_total",
				Help:      "Activity updates dropped because the queue was full",
			},
		),
	}
}

func (m *Metrics) outcome(backend, outcome string) {
	if m == nil {
		return
	}
	m.Initializations.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) bootstrap(seconds float64) {
	if m == nil {
		return
	}
	m.BootstrapDuration.Observe(seconds)
}

func (m *Metrics) touchDropped() {
	if m == nil {
		return
	}
	m.TouchDropped.Inc()
}
