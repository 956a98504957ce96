package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

func TestGzipSkipsImages(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewGzip())
	payload := strings.Repeat("a", gzipMinLength*2)
	e.GET("/api/datasets", func(c echo.Context) error {
		return c.String(http.StatusOK, payload)
	})
	e.GET(ImageRoute, func(c echo.Context) error {
		return c.Blob(http.StatusOK, "image/png", []byte(payload))
	})

	tests := []struct {
		name         string
		target       string
		wantEncoding string
	}{
		{"json is compressed", "/api/datasets", "gzip"},
		{"png is not", "/api/lightcurve/K00752.01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			req.Header.Set(echo.HeaderAcceptEncoding, "gzip")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantEncoding, rec.Header().Get(echo.HeaderContentEncoding))
		})
	}
}

func TestCORSFallsBackToAnyOrigin(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewCORS(SecurityConfig{}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestID(), NewRequestLogger(logger.NewDiscardLogger()))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36, "uuid request id")
}

func TestTelemetryMiddleware(t *testing.T) {
	t.Parallel()

	httpMetrics, err := metrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewTelemetryMiddleware(httpMetrics).Middleware())
	e.GET("/ok/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/echo-error", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "conflict")
	})
	e.GET("/app-error", func(c echo.Context) error {
		return apperrors.NotFound("missing")
	})

	for _, target := range []string{"/ok/1", "/ok/2", "/echo-error", "/app-error", "/nowhere"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, http.NoBody))
	}

	assert.InDelta(t, 2, httpMetrics.GetRequestCount(http.MethodGet, "/ok/:id", http.StatusOK), 1e-9)
	assert.InDelta(t, 1, httpMetrics.GetRequestCount(http.MethodGet, "/echo-error", http.StatusConflict), 1e-9)
	assert.InDelta(t, 1, httpMetrics.GetRequestCount(http.MethodGet, "/app-error", http.StatusNotFound), 1e-9)
	assert.InDelta(t, 1, httpMetrics.GetRequestCount(http.MethodGet, unmatchedRoute, http.StatusNotFound), 1e-9)
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	e := echo.New()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no error", nil, http.StatusOK},
		{"echo error", echo.ErrUnauthorized, http.StatusUnauthorized},
		{"validation", apperrors.ValidationError("bad"), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), httptest.NewRecorder())
			assert.Equal(t, tt.want, statusOf(c, tt.err))
		})
	}
}
