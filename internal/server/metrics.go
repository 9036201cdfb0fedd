package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the server's Prometheus collectors.
type Metrics struct {
	Sessions       prometheus.Gauge
	Transitions    *prometheus.CounterVec
	CallbackErrors *prometheus.CounterVec
	Reloads        *prometheus.CounterVec
	Activation     prometheus.Histogram
	ScrollDropped  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scrollytell",
			Name:      "sessions",
			Help:      "Open reader sessions.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scrollytell",
			Name:      "transitions_total",
			Help:      "Active step changes, by direction.",
		}, []string{"direction"}),
		CallbackErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scrollytell",
			Name:      "callback_errors_total",
			Help:      "Step callbacks that panicked, by visualization.",
		}, []string{"viz"}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scrollytell",
			Name:      "reloads_total",
			Help:      "Project reloads, by result.",
		}, []string{"result"}),
		Activation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scrollytell",
			Name:      "activation_seconds",
			Help:      "Time to load datasets and run every visualization setup.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		ScrollDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scrollytell",
			Name:      "scroll_coalesced_total",
			Help:      "Scroll reports superseded before evaluation.",
		}),
	}
	reg.MustRegister(m.Sessions, m.Transitions, m.CallbackErrors, m.Reloads, m.Activation, m.ScrollDropped)
	return m
}
