package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes forecasting, fetch and HTTP metrics through Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	fitDuration  *prometheus.HistogramVec
	fitFailures  *prometheus.CounterVec
	selections   *prometheus.CounterVec
	fetchTotal   *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a recorder on its own registry so tests and multiple servers never collide
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_model_fit_duration_seconds",
				Help:    "Duration of model fits in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"model"},
		),
		fitFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_model_fit_failures_total",
				Help: "Total number of failed model fits",
			},
			[]string{"model"},
		),
		selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_model_selections_total",
				Help: "Total number of automatic model selections per label",
			},
			[]string{"model"},
		),
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_source_fetch_total",
				Help: "Total number of vendor fetches by outcome",
			},
			[]string{"source", "outcome"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_http_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
	}
}

// ObserveFit records one model fit
func (r *Recorder) ObserveFit(model string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.fitDuration.WithLabelValues(model).Observe(d.Seconds())
	if err != nil {
		r.fitFailures.WithLabelValues(model).Inc()
	}
}

// RecordSelection records an automatic model choice
func (r *Recorder) RecordSelection(model string) {
	if r == nil {
		return
	}
	r.selections.WithLabelValues(model).Inc()
}

// RecordFetch records a vendor fetch; outcome is "ok", "empty" or "error"
func (r *Recorder) RecordFetch(source, outcome string) {
	if r == nil {
		return
	}
	r.fetchTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveHTTP records an API request
func (r *Recorder) ObserveHTTP(route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
