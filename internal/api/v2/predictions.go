package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// PredictionListResponse is returned by GET /api/predictions
type PredictionListResponse struct {
	Predictions []datastore.PredictionRecord `json:"predictions"`
	Count       int                          `json:"count"`
}

// initPredictionRoutes registers the prediction history routes
func (c *Controller) initPredictionRoutes() {
	c.Group.GET("/predictions", c.ListPredictions)
	c.Group.GET("/predictions/stats", c.PredictionStats)
	c.Group.POST("/predictions/save", c.SavePrediction)
	c.Group.DELETE("/predictions", c.ClearPredictions)
}

// ListPredictions handles GET /api/predictions[?dataset=], newest first
func (c *Controller) ListPredictions(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var (
		rows []datastore.Prediction
		err  error
	)
	if name := strings.TrimSpace(ctx.QueryParam("dataset")); name != "" {
		rows, err = c.DS.ListPredictionsByDataset(reqCtx, name)
	} else {
		rows, err = c.DS.ListPredictions(reqCtx)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to retrieve predictions", http.StatusInternalServerError)
	}

	records := make([]datastore.PredictionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].Record())
	}
	return ctx.JSON(http.StatusOK, PredictionListResponse{Predictions: records, Count: len(records)})
}

// PredictionStats handles GET /api/predictions/stats
func (c *Controller) PredictionStats(ctx echo.Context) error {
	stats, err := c.DS.PredictionStats(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to retrieve prediction statistics", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, stats)
}

// SavePrediction handles POST /api/predictions/save. Validation failures name
// the first missing field; nothing is written unless the record is complete.
func (c *Controller) SavePrediction(ctx echo.Context) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	var record *datastore.PredictionRecord
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
		}
	}

	saved, err := c.DS.SavePrediction(ctx.Request().Context(), record)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "Failed to save prediction", http.StatusInternalServerError)
	}

	c.apiLogger.Info("prediction saved",
		logger.String("dataset", saved.Dataset),
		logger.String("identifier", saved.CandidateID))

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Prediction saved successfully",
		"id":      saved.ID,
	})
}

// ClearPredictions handles DELETE /api/predictions
func (c *Controller) ClearPredictions(ctx echo.Context) error {
	deleted, err := c.DS.ClearPredictions(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to clear predictions", http.StatusInternalServerError)
	}

	c.apiLogger.Info("predictions cleared", logger.Int64("deleted", deleted))
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Predictions cleared",
		"deleted": deleted,
	})
}
