package metrics

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, 0.002)
	m.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, 0.003)
	m.RecordHTTPRequest(http.MethodPost, "/predict/:dataset", http.StatusBadRequest, 0.001)

	assert.InDelta(t, 2.0, m.GetRequestCount(http.MethodGet, "/health", http.StatusOK), 0)
	assert.InDelta(t, 1.0, m.GetRequestCount(http.MethodPost, "/predict/:dataset", http.StatusBadRequest), 0)
	assert.Zero(t, m.GetRequestCount(http.MethodDelete, "/predictions", http.StatusOK))

	m.RequestStarted()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.inFlight), 0)
	m.RequestFinished()
	assert.Zero(t, testutil.ToFloat64(m.inFlight))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	_, err = NewDatastoreMetrics(registry)
	assert.Error(t, err)
}

func TestClassifierMetrics(t *testing.T) {
	m, err := NewClassifierMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordVerdict("kepler", true, 0.91)
	m.RecordVerdict("kepler", false, 0.62)
	m.RecordVerdict("tess", true, 0.7)
	m.SetModelLoaded("kepler", "logistic", true)
	m.RecordOperation(OpPredict, StatusSuccess)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("kepler", "true")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("kepler", "false")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.modelLoaded.WithLabelValues("kepler", "logistic")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpPredict, StatusSuccess)), 0)
}

func TestLightcurveMetrics(t *testing.T) {
	m, err := NewLightcurveMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordImage(SourceSynthetic)
	m.RecordImage(SourceSynthetic)
	m.RecordFallback("timeout")

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.generatedTotal.WithLabelValues(SourceSynthetic)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("timeout")), 0)
}

func TestDatasetMetrics(t *testing.T) {
	m, err := NewDatasetMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordLoad("kepler", 9564, 9564, 0.25)
	m.RecordLookup("kepler", true)
	m.RecordLookup("kepler", false)

	assert.InDelta(t, 9564.0, testutil.ToFloat64(m.rowsLoaded.WithLabelValues("kepler")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues("kepler", "miss")), 0)
}
