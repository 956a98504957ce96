package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClassifierMetrics tracks scoring and model loading
type ClassifierMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	verdictsTotal     *prometheus.CounterVec
	confidence        *prometheus.HistogramVec
	modelLoaded       *prometheus.GaugeVec
}

// NewClassifierMetrics creates and registers classifier metrics
func NewClassifierMetrics(registry *prometheus.Registry) (*ClassifierMetrics, error) {
	m := &ClassifierMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ClassifierMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_operations_total",
			Help: "Classifier operations by outcome",
		},
		[]string{"operation", "status"},
	)
	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_operation_duration_seconds",
			Help:    "Time taken by classifier operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)
	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_errors_total",
			Help: "Classifier errors by category",
		},
		[]string{"operation", "error_type"},
	)
	m.verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_verdicts_total",
			Help: "Predictions by dataset and verdict",
		},
		[]string{"dataset", "is_exoplanet"},
	)
	m.confidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_confidence",
			Help:    "Distribution of reported confidence values",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 10),
		},
		[]string{"dataset"},
	)
	m.modelLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "classifier_model_loaded",
			Help: "1 when a model is loaded for the dataset",
		},
		[]string{"dataset", "backend"},
	)
}

func (m *ClassifierMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.verdictsTotal,
		m.confidence,
		m.modelLoaded,
	}
}

// Describe implements the Collector interface
func (m *ClassifierMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ClassifierMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder
func (m *ClassifierMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *ClassifierMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *ClassifierMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordVerdict records the outcome of one prediction
func (m *ClassifierMetrics) RecordVerdict(dataset string, isExoplanet bool, confidence float64) {
	verdict := "false"
	if isExoplanet {
		verdict = "true"
	}
	m.verdictsTotal.WithLabelValues(dataset, verdict).Inc()
	m.confidence.WithLabelValues(dataset).Observe(confidence)
}

// SetModelLoaded flags whether a dataset's model is usable
func (m *ClassifierMetrics) SetModelLoaded(dataset, backend string, loaded bool) {
	value := 0.0
	if loaded {
		value = 1
	}
	m.modelLoaded.WithLabelValues(dataset, backend).Set(value)
}
