// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one run.
type Metrics struct {
	Registry *prometheus.Registry

	PeriodsProcessed *prometheus.CounterVec
	PeriodsAborted   *prometheus.CounterVec
	PixelsClassified *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

// New registers a fresh set of collectors on their own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		PeriodsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landcover_periods_processed_total",
			Help: "Number of periods that completed classification.",
		}, []string{"period"}),
		PeriodsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landcover_periods_aborted_total",
			Help: "Number of periods aborted before a summary was produced.",
		}, []string{"period", "reason"}),
		PixelsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landcover_pixels_classified_total",
			Help: "Number of pixels assigned to each category.",
		}, []string{"period", "category"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "landcover_stage_duration_seconds",
			Help: "Duration of pipeline stages.",
		}, []string{"stage"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landcover_http_requests_total",
			Help: "Number of HTTP requests served by the capture server.",
		}, []string{"path"}),
	}
}

// ObserveStage records how long a stage took since start
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware counts requests per path
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		m.HTTPRequests.WithLabelValues(r.URL.Path).Inc()
	})
}
