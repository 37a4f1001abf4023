// Package metrics provides Prometheus collectors for the clipboard
// exchange core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks clipboard relay Prometheus metrics.
//
// All metrics use the copypasta_ prefix.
type Metrics struct {
	// PastesTotal counts accepted pastes by content type
	PastesTotal *prometheus.CounterVec

	// PollsTotal counts finished long polls by outcome
	// ("success", "timeout", "cancelled")
	PollsTotal *prometheus.CounterVec

	// PollWaiters tracks the number of long polls currently sleeping
	PollWaiters prometheus.Gauge
}

// NewMetrics creates clipboard metrics registered against reg
// (typically prometheus.DefaultRegisterer). Panics if registration
// fails, which is expected during initialization only.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PastesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copypasta_pastes_total",
				Help: "Total accepted clipboard pastes by content type",
			},
			[]string{"content_type"},
		),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copypasta_polls_total",
				Help: "Total finished long polls by outcome",
			},
			[]string{"outcome"},
		),
		PollWaiters: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "copypasta_poll_waiters",
				Help: "Long polls currently waiting for a clipboard change",
			},
		),
	}

	reg.MustRegister(m.PastesTotal, m.PollsTotal, m.PollWaiters)
	return m
}
