package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// GenerateRequest is the body of POST /api/lightcurve/generate. koi_name is
// the historical field; identifier and toi_name work for any dataset.
type GenerateRequest struct {
	KOIName    string `json:"koi_name"`
	TOIName    string `json:"toi_name"`
	Identifier string `json:"identifier"`
	Dataset    string `json:"dataset"`
}

func (r *GenerateRequest) id() string {
	for _, v := range []string{r.KOIName, r.Identifier, r.TOIName} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// GenerateResponse is returned on success
type GenerateResponse struct {
	Success      bool   `json:"success"`
	Filename     string `json:"filename"`
	CandidateID  string `json:"candidate_id"`
	SecondaryKey int64  `json:"secondary_key"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Synthetic    bool   `json:"synthetic"`
	Message      string `json:"message,omitempty"`
}

// LightcurveErrorResponse keeps the success flag the light-curve clients check
type LightcurveErrorResponse struct {
	Success bool `json:"success"`
	*ErrorResponse
}

func lightcurveFailure(resp *ErrorResponse) LightcurveErrorResponse {
	return LightcurveErrorResponse{Success: false, ErrorResponse: resp}
}

// initLightcurveRoutes registers light-curve generation and image routes
func (c *Controller) initLightcurveRoutes() {
	c.Group.POST("/lightcurve/generate", c.GenerateLightcurve, c.generateRateLimiter())
	c.Group.GET("/lightcurve/:identifier", c.GetLightcurve)
}

// GenerateLightcurve handles POST /api/lightcurve/generate. An identifier
// that already has an image is answered from the store.
func (c *Controller) GenerateLightcurve(ctx echo.Context) error {
	var req GenerateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.lightcurveError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	identifier := req.id()
	if identifier == "" {
		return c.lightcurveError(ctx, nil, "KOI name is required", http.StatusBadRequest)
	}

	artifact, err := c.Lightcurves.GenerateOrFetch(ctx.Request().Context(), req.Dataset, identifier)
	if err != nil {
		code := errors.HTTPStatus(err)
		message := "Lightcurve generation failed"
		if code == http.StatusRequestTimeout {
			message = "Lightcurve generation timed out"
		}
		return c.lightcurveError(ctx, err, message, code)
	}

	resp := GenerateResponse{
		Success:      true,
		Filename:     artifact.Filename,
		CandidateID:  artifact.Identifier,
		SecondaryKey: artifact.SecondaryKey,
		Title:        "Lightcurve for " + artifact.Identifier,
		URL:          "/api/lightcurve/" + url.PathEscape(artifact.Identifier),
		Synthetic:    artifact.Synthetic,
	}
	if artifact.Cached {
		resp.Message = "Lightcurve already exists"
	}

	c.apiLogger.Info("lightcurve ready",
		logger.String("identifier", artifact.Identifier),
		logger.Int64("secondary_key", artifact.SecondaryKey),
		logger.Bool("cached", artifact.Cached),
		logger.Bool("synthetic", artifact.Synthetic))

	return ctx.JSON(http.StatusOK, resp)
}

// GetLightcurve handles GET /api/lightcurve/:identifier. The reference may be
// a candidate identifier, a numeric survey ID or a lightcurve_{id}.png name.
func (c *Controller) GetLightcurve(ctx echo.Context) error {
	ref, err := url.PathUnescape(ctx.Param("identifier"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid light curve reference", http.StatusBadRequest)
	}

	artifact, err := c.Lightcurves.Image(ctx.Request().Context(), ref)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Lightcurve not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to serve lightcurve", errors.HTTPStatus(err))
	}

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", artifact.Filename))
	header.Set("Cache-Control", "public, max-age="+strconv.Itoa(LightcurveCacheSeconds))
	return ctx.Blob(http.StatusOK, "image/png", artifact.Image)
}

func (c *Controller) lightcurveError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code, requestCorrelationID(ctx))
	c.logError(ctx, resp, err)
	return ctx.JSON(code, lightcurveFailure(resp))
}
