package generator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder records generator call metrics.
// Tests inject a recorder of their own instead of Prometheus.
type MetricsRecorder interface {
	// RecordDuration records the time taken by a Generate call, retries included.
	RecordDuration(provider string, duration time.Duration)

	// RecordLength records the rune length of a returned candidate.
	RecordLength(provider string, length int)

	// RecordResult counts a finished call by status
	// ("success", "empty", "error", "circuit_open").
	RecordResult(provider, status string)
}

// PrometheusMetrics implements MetricsRecorder using Prometheus metrics.
type PrometheusMetrics struct {
	durationHistogram *prometheus.HistogramVec
	lengthHistogram   *prometheus.HistogramVec
	resultCounter     *prometheus.CounterVec
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

// NewPrometheusMetrics returns the process-wide Prometheus recorder.
// It is a singleton so repeated construction never registers twice.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			durationHistogram: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "relay_generator_duration_seconds",
				Help:    "Time taken by a generation call, retries included",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			}, []string{"provider"}),
			lengthHistogram: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "relay_generator_candidate_length_characters",
				Help:    "Distribution of raw candidate lengths in characters (Unicode runes)",
				Buckets: []float64{50, 100, 250, 500, 900, 1200, 2000, 4000},
			}, []string{"provider"}),
			resultCounter: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "relay_generator_requests_total",
				Help: "Total number of generation calls by provider and status",
			}, []string{"provider", "status"}),
		}
	})
	return prometheusMetricsInstance
}

// RecordDuration implements MetricsRecorder.RecordDuration
func (p *PrometheusMetrics) RecordDuration(provider string, duration time.Duration) {
	p.durationHistogram.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLength implements MetricsRecorder.RecordLength
func (p *PrometheusMetrics) RecordLength(provider string, length int) {
	p.lengthHistogram.WithLabelValues(provider).Observe(float64(length))
}

// RecordResult implements MetricsRecorder.RecordResult
func (p *PrometheusMetrics) RecordResult(provider, status string) {
	p.resultCounter.WithLabelValues(provider, status).Inc()
}
