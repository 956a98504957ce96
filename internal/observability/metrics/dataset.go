package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatasetMetrics reports what the dataset catalog has loaded
type DatasetMetrics struct {
	registry *prometheus.Registry

	rowsLoaded    *prometheus.GaugeVec
	optionsLoaded *prometheus.GaugeVec
	loadDuration  *prometheus.HistogramVec
	lookupsTotal  *prometheus.CounterVec
}

// NewDatasetMetrics creates and registers dataset metrics
func NewDatasetMetrics(registry *prometheus.Registry) (*DatasetMetrics, error) {
	m := &DatasetMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatasetMetrics) initMetrics() {
	m.rowsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_rows_loaded",
			Help: "Rows loaded per dataset",
		},
		[]string{"dataset"},
	)
	m.optionsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_options_loaded",
			Help: "Autocomplete identifiers loaded per dataset",
		},
		[]string{"dataset"},
	)
	m.loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataset_load_duration_seconds",
			Help:    "Time taken to load a dataset",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"dataset"},
	)
	m.lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_lookups_total",
			Help: "Record lookups by outcome",
		},
		[]string{"dataset", "result"}, // result: hit, miss
	)
}

func (m *DatasetMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rowsLoaded,
		m.optionsLoaded,
		m.loadDuration,
		m.lookupsTotal,
	}
}

// Describe implements the Collector interface
func (m *DatasetMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatasetMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordLoad records a completed dataset load
func (m *DatasetMetrics) RecordLoad(dataset string, rows, options int, seconds float64) {
	m.rowsLoaded.WithLabelValues(dataset).Set(float64(rows))
	m.optionsLoaded.WithLabelValues(dataset).Set(float64(options))
	m.loadDuration.WithLabelValues(dataset).Observe(seconds)
}

// RecordLookup counts a record lookup
func (m *DatasetMetrics) RecordLookup(dataset string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.lookupsTotal.WithLabelValues(dataset, result).Inc()
}
