package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// generateRateLimiter bounds light-curve generation per client IP. Each
// generation may hold an archive connection for the full timeout.
func (c *Controller) generateRateLimiter() echo.MiddlewareFunc {
	settings := c.Settings.Lightcurve
	if settings.RateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	burst := max(settings.RateBurst, 1)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(settings.RateLimit),
				Burst:     burst,
				ExpiresIn: rateLimitWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		DenyHandler: func(ctx echo.Context, _ string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, lightcurveFailure(
				NewErrorResponse(err, "Too many light curve requests, please wait before trying again",
					http.StatusTooManyRequests, requestCorrelationID(ctx))))
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return c.HandleError(ctx, err, "Unable to identify client", http.StatusForbidden)
		},
	})
}
