package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/classifier"
	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/dataset"
	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability"
	"github.com/tphakala/exoplanet-go/internal/testutil"
)

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	t.Run("defaults survive zero values", func(t *testing.T) {
		cfg := ConfigFromSettings(conf.NewTestSettings().WithWebServer(func(ws *conf.WebServerSettings) {
			*ws = conf.WebServerSettings{}
		}).Build())

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
		assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
		assert.Equal(t, DefaultBodyLimit, cfg.BodyLimit)
		assert.Equal(t, ":8080", cfg.Address())
		require.NoError(t, cfg.Validate())
	})

	t.Run("settings override defaults", func(t *testing.T) {
		cfg := ConfigFromSettings(conf.NewTestSettings().WithWebServer(func(ws *conf.WebServerSettings) {
			ws.Host = "127.0.0.1"
			ws.Port = "5000"
			ws.AllowedOrigins = []string{"http://localhost:3000"}
			ws.ReadTimeout = 5 * time.Second
			ws.BodyLimit = "2M"
		}).Build())

		assert.Equal(t, "127.0.0.1:5000", cfg.Address())
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
		assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
		assert.Equal(t, "2M", cfg.BodyLimit)
		assert.Contains(t, cfg.String(), "127.0.0.1:5000")
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "port is required"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "read timeout"},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }, "write timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// newTestServer wires a server over fixture data without lightcurves
func newTestServer(t *testing.T, metricsEnabled bool) (*Server, *observability.Metrics) {
	t.Helper()

	settings := testutil.WriteDatasetFixtures(t, t.TempDir())
	settings.Metrics.Enabled = metricsEnabled
	discard := logger.NewDiscardLogger()

	catalog, err := dataset.NewCatalog(context.Background(), settings, dataset.WithLogger(discard))
	require.NoError(t, err)
	store, err := datastore.New(settings, datastore.WithLogger(discard))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	s, err := New(settings,
		WithLogger(discard),
		WithCatalog(catalog),
		WithPredictor(classifier.NewService(settings)),
		WithDataStore(store),
		WithMetrics(m))
	require.NoError(t, err)
	return s, m
}

func serve(s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresComponents(t *testing.T) {
	t.Parallel()

	_, err := New(conf.NewTestSettings().Build(), WithLogger(logger.NewDiscardLogger()))
	require.Error(t, err)
}

func TestServerMiddleware(t *testing.T) {
	t.Parallel()
	s, m := newTestServer(t, true)
	require.NotNil(t, s.APIController())

	t.Run("request id is generated", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/api/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("request id is propagated", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/api/health", "", map[string]string{echo.HeaderXRequestID: "abc-123"})
		assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("security headers", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/api/datasets", "", nil)
		assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
		assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	})

	t.Run("cors allows any origin by default", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/api/datasets", "", map[string]string{echo.HeaderOrigin: "http://example.com"})
		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("telemetry records the route template", func(t *testing.T) {
		before := m.HTTP.GetRequestCount(http.MethodPost, "/api/predict/:dataset", http.StatusOK)
		rec := serve(s, http.MethodPost, "/api/predict/kepler", `{"koi_name": "K00752.01"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.InDelta(t, before+1, m.HTTP.GetRequestCount(http.MethodPost, "/api/predict/:dataset", http.StatusOK), 1e-9)
	})

	t.Run("telemetry records handler errors with their status", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/api/search", `{}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Positive(t, m.HTTP.GetRequestCount(http.MethodPost, "/api/search", http.StatusBadRequest))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/api/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "http_requests_total")
	})
}

func TestMetricsEndpointDisabled(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, false)

	rec := serve(s, http.MethodGet, "/api/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, false)

	large := `{"exoplanet_id": "` + strings.Repeat("x", 2<<20) + `"}`
	rec := serve(s, http.MethodPost, "/api/search", large, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, false)
	require.NoError(t, s.Shutdown())
}
