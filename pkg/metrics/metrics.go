// Package metrics exposes profiler counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pgstatprof"

// Collector holds the profiler's metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	Ticks           prometheus.Counter
	Statements      prometheus.Counter
	Reports         prometheus.Counter
	FetchErrors     prometheus.Counter
	ChangeSignature prometheus.Gauge
	FetchDuration   prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "The number of sampling ticks completed.",
		}),
		Statements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "The number of active statements sampled.",
		}),
		Reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "The number of reports emitted.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "The number of failed pg_stat_activity reads.",
		}),
		ChangeSignature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "change_signature",
			Help:      "The summarizer's latest change signature: distinct shapes, or retained samples for a window.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent reading pg_stat_activity.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}

	c.registry.MustRegister(
		c.Ticks,
		c.Statements,
		c.Reports,
		c.FetchErrors,
		c.ChangeSignature,
		c.FetchDuration,
	)
	return c
}

// ObserveFetch records one pg_stat_activity read.
func (c *Collector) ObserveFetch(started time.Time, statements int, err error) {
	c.FetchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		c.FetchErrors.Inc()
		return
	}
	c.Statements.Add(float64(statements))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
