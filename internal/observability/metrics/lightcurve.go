package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LightcurveMetrics tracks light-curve generation and its fallbacks
type LightcurveMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	generatedTotal    *prometheus.CounterVec
	fallbacksTotal    *prometheus.CounterVec
}

// NewLightcurveMetrics creates and registers light-curve metrics
func NewLightcurveMetrics(registry *prometheus.Registry) (*LightcurveMetrics, error) {
	m := &LightcurveMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LightcurveMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightcurve_operations_total",
			Help: "Light-curve operations by outcome",
		},
		[]string{"operation", "status"},
	)
	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lightcurve_operation_duration_seconds",
			Help:    "Time taken by light-curve operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"operation"},
	)
	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightcurve_errors_total",
			Help: "Light-curve errors by category",
		},
		[]string{"operation", "error_type"},
	)
	m.generatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightcurve_images_total",
			Help: "Light-curve images served by source",
		},
		[]string{"source"}, // archive, synthetic, cache, existing
	)
	m.fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightcurve_fallbacks_total",
			Help: "Synthetic fallbacks by reason",
		},
		[]string{"reason"},
	)
}

func (m *LightcurveMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.generatedTotal,
		m.fallbacksTotal,
	}
}

// Describe implements the Collector interface
func (m *LightcurveMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *LightcurveMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder
func (m *LightcurveMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *LightcurveMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *LightcurveMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordImage counts an image served from source
func (m *LightcurveMetrics) RecordImage(source string) {
	m.generatedTotal.WithLabelValues(source).Inc()
}

// RecordFallback counts a synthetic fallback and its cause
func (m *LightcurveMetrics) RecordFallback(reason string) {
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}
