// Package metrics exposes Prometheus instrumentation for the admin console.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records login attempts. It satisfies login.Recorder.
type Collector struct {
	attempts  *prometheus.CounterVec
	duration  prometheus.Histogram
	throttled prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_admin_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tenant_admin_login_duration_seconds",
			Help:    "Time from submission to a classified login outcome.",
			Buckets: prometheus.DefBuckets,
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenant_admin_login_throttled_total",
			Help: "Login submissions rejected locally by the rate limiter.",
		}),
	}

	reg.MustRegister(c.attempts, c.duration, c.throttled)
	return c
}

// RecordAttempt counts one finished attempt and observes its latency.
func (c *Collector) RecordAttempt(outcome string, elapsed time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	c.attempts.WithLabelValues(outcome).Inc()
	c.duration.Observe(elapsed.Seconds())
}

// RecordThrottled counts a submission refused before reaching the Authentication Service.
func (c *Collector) RecordThrottled() {
	c.throttled.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
