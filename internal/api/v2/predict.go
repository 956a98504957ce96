package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// initPredictRoutes registers the scoring route
func (c *Controller) initPredictRoutes() {
	c.Group.POST("/predict/:dataset", c.Predict)
}

// Predict handles POST /api/predict/:dataset. The identifier is read from the
// dataset's configured field, koi_name for Kepler and toi_name for TESS.
func (c *Controller) Predict(ctx echo.Context) error {
	name := ctx.Param("dataset")
	ds, ok := c.Settings.Dataset(name)
	if !ok {
		return c.HandleError(ctx, errors.UnsupportedDataset(name), "Invalid dataset name", http.StatusBadRequest)
	}

	body, err := decodeObject(ctx.Request().Body)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	identifier := stringField(body, ds.IDField)
	if identifier == "" {
		return c.HandleError(ctx, nil, idLabel(ds.IDField)+" is required", http.StatusBadRequest)
	}

	if _, err := c.Catalog.Dataset(name); err != nil {
		return c.HandleError(ctx, err, ds.Title+" dataset not found", http.StatusBadRequest)
	}
	row, err := c.Catalog.Lookup(name, identifier)
	if err != nil {
		return c.HandleError(ctx, err, fmt.Sprintf("%s %s not found in dataset", idLabel(ds.IDField), identifier),
			http.StatusNotFound)
	}

	vec, err := c.extractors[name].Extract(row)
	if err != nil {
		return c.HandleError(ctx, err, ds.Title+" prediction failed", http.StatusInternalServerError)
	}

	result, err := c.Predictor.Predict(ctx.Request().Context(), name, identifier, vec)
	if err != nil {
		return c.HandleError(ctx, err, ds.Title+" prediction failed", errors.HTTPStatus(err))
	}

	c.apiLogger.Info("prediction completed",
		logger.String("dataset", name),
		logger.String("identifier", identifier),
		logger.Bool("is_exoplanet", result.IsExoplanet),
		logger.Float64("confidence", result.Confidence))

	resp := map[string]any{
		"message": ds.Title + " prediction completed",
		"prediction": map[string]any{
			"is_exoplanet":  result.IsExoplanet,
			"confidence":    result.Confidence,
			ds.IDField:      identifier,
			"model_version": result.ModelVersion,
		},
	}
	if disposition := row.Disposition(); disposition != "" {
		resp["nasa_classification"] = disposition
	}
	return ctx.JSON(http.StatusOK, resp)
}

// decodeObject reads a JSON object body. An empty body decodes to an empty
// map; numbers are kept as json.Number so identifiers like 1000.01 keep
// their spelling.
func decodeObject(r io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return out, nil
}

// stringField returns body[key] as a trimmed string. Numbers are accepted.
func stringField(body map[string]any, key string) string {
	switch v := body[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// idLabel turns a request field such as koi_name into "KOI name"
func idLabel(field string) string {
	prefix, rest, found := strings.Cut(field, "_")
	if !found {
		return field
	}
	return strings.ToUpper(prefix) + " " + strings.ReplaceAll(rest, "_", " ")
}
