package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics tracks database operations and stored row counts
type DatastoreMetrics struct {
	registry *prometheus.Registry

	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	dbTableRowCountGauge   *prometheus.GaugeVec
	dbConnectionsOpen      prometheus.Gauge
}

// NewDatastoreMetrics creates and registers datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operations_total",
			Help: "Database operations by outcome",
		},
		[]string{"operation", "status"},
	)
	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_operation_duration_seconds",
			Help:    "Time taken by database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)
	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operation_errors_total",
			Help: "Database errors by category",
		},
		[]string{"operation", "error_type"},
	)
	m.dbTableRowCountGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datastore_table_rows",
			Help: "Row count per table, refreshed on stats queries",
		},
		[]string{"table"},
	)
	m.dbConnectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_open",
		Help: "Open connections in the database pool",
	})
}

func (m *DatastoreMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbTableRowCountGauge,
		m.dbConnectionsOpen,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *DatastoreMetrics) RecordDuration(operation string, seconds float64) {
	m.dbOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *DatastoreMetrics) RecordError(operation, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetTableRows updates the row count gauge for a table
func (m *DatastoreMetrics) SetTableRows(table string, rows int64) {
	m.dbTableRowCountGauge.WithLabelValues(table).Set(float64(rows))
}

// SetOpenConnections updates the pool gauge
func (m *DatastoreMetrics) SetOpenConnections(n int) {
	m.dbConnectionsOpen.Set(float64(n))
}
