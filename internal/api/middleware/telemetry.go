package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// unmatchedRoute labels requests no route matched, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// TelemetryMiddleware records request counts, latency and response sizes
type TelemetryMiddleware struct {
	httpMetrics *metrics.HTTPMetrics
}

// NewTelemetryMiddleware creates a new telemetry middleware instance
func NewTelemetryMiddleware(httpMetrics *metrics.HTTPMetrics) *TelemetryMiddleware {
	return &TelemetryMiddleware{httpMetrics: httpMetrics}
}

// Middleware returns the Echo middleware function
func (tm *TelemetryMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tm.httpMetrics == nil {
				return next(c)
			}

			tm.httpMetrics.RequestStarted()
			defer tm.httpMetrics.RequestFinished()

			start := time.Now()
			err := next(c)
			duration := time.Since(start).Seconds()

			// Route template, so /predict/kepler and /predict/tess share a series
			path := c.Path()
			if path == "" || path == "/*" {
				path = unmatchedRoute
			}
			method := c.Request().Method
			statusCode := statusOf(c, err)

			tm.httpMetrics.RecordHTTPRequest(method, path, statusCode, duration)
			tm.httpMetrics.RecordHTTPResponseSize(method, path, c.Response().Size)
			if statusCode >= http.StatusBadRequest {
				tm.httpMetrics.RecordHTTPRequestError(method, path, categorizeError(err, statusCode))
			}

			return err
		}
	}
}

// statusOf returns the status the client will see. A returned error has not
// been written yet; echo's error handler writes it after the middleware chain.
func statusOf(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		if status := c.Response().Status; status != 0 {
			return status
		}
		return http.StatusOK
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return errors.HTTPStatus(err)
}

// categorizeError labels a failed request for the error counter
func categorizeError(err error, statusCode int) string {
	if err != nil {
		if category := errors.CategoryOf(err); category != "" && category != errors.CategoryGeneric {
			return string(category)
		}
	}

	switch statusCode {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestTimeout:
		return "timeout"
	case http.StatusRequestEntityTooLarge:
		return "body_limit"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if statusCode >= http.StatusInternalServerError {
			return "system"
		}
		return "http_error"
	}
}
