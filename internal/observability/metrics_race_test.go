package observability

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// NewMetrics uses a private registry, so concurrent construction must not collide
func TestNewMetricsConcurrency(t *testing.T) {
	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.registry)
			assert.NotNil(t, m.HTTP)
			assert.NotNil(t, m.Classifier)
			assert.NotNil(t, m.Datastore)
			assert.NotNil(t, m.Lightcurve)
			assert.NotNil(t, m.Dataset)
		})
	}
	wg.Wait()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, 0.001)
	m.Lightcurve.RecordImage(metrics.SourceSynthetic)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/health",status_code="200"} 1`)
	assert.Contains(t, body, `lightcurve_images_total{source="synthetic"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
