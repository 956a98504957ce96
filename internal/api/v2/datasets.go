package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/exoplanet-go/internal/errors"
)

// SearchRequest is the body of POST /api/search
type SearchRequest struct {
	ExoplanetID string `json:"exoplanet_id"`
	Dataset     string `json:"dataset"`
}

// SearchResponse returns the full matched row
type SearchResponse struct {
	ExoplanetID string         `json:"exoplanet_id"`
	Dataset     string         `json:"dataset"`
	Data        map[string]any `json:"data"`
	Found       bool           `json:"found"`
}

// AutocompleteResponse is returned by GET /api/autocomplete/:dataset
type AutocompleteResponse struct {
	Suggestions []string `json:"suggestions"`
	Dataset     string   `json:"dataset"`
	TotalCount  int      `json:"total_count"`
}

// initDatasetRoutes registers dataset lookup routes
func (c *Controller) initDatasetRoutes() {
	c.Group.GET("/datasets", c.GetDatasets)
	c.Group.GET("/datasets/:name", c.GetDatasetInfo)
	c.Group.GET("/autocomplete/:dataset", c.Autocomplete)
	c.Group.POST("/search", c.Search)
}

// GetDatasets handles GET /api/datasets. Each dataset also gets a
// <name>_loaded flag.
func (c *Controller) GetDatasets(ctx echo.Context) error {
	resp := map[string]any{"datasets": c.Catalog.Names()}
	for name, loaded := range c.Catalog.Status() {
		resp[name+"_loaded"] = loaded
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetDatasetInfo handles GET /api/datasets/:name
func (c *Controller) GetDatasetInfo(ctx echo.Context) error {
	name := ctx.Param("name")
	info, err := c.Catalog.Info(name)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid dataset name", http.StatusBadRequest)
	}
	return ctx.JSON(http.StatusOK, info)
}

// Autocomplete handles GET /api/autocomplete/:dataset?q=. Without a query the
// whole list is returned.
func (c *Controller) Autocomplete(ctx echo.Context) error {
	name := ctx.Param("dataset")
	suggestions, err := c.Catalog.Suggestions(name)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load "+name+" options", http.StatusBadRequest)
	}

	items := suggestions.Filter(ctx.QueryParam("q"), autocompleteLimit)
	return ctx.JSON(http.StatusOK, AutocompleteResponse{
		Suggestions: items,
		Dataset:     name,
		TotalCount:  len(items),
	})
}

// Search handles POST /api/search. The identifier matches as a
// case-insensitive substring; the first matching row wins.
func (c *Controller) Search(ctx echo.Context) error {
	var req SearchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	req.ExoplanetID = strings.TrimSpace(req.ExoplanetID)
	if req.ExoplanetID == "" {
		return c.HandleError(ctx, nil, "Exoplanet ID is required", http.StatusBadRequest)
	}
	if req.Dataset == "" {
		req.Dataset = defaultDataset
	}

	idx, err := c.Catalog.Dataset(req.Dataset)
	if err != nil {
		// Unknown and unloaded datasets are both client errors here
		return c.HandleError(ctx, err, "Invalid dataset name", http.StatusBadRequest)
	}

	row, err := idx.Search(req.ExoplanetID)
	if err != nil {
		return c.HandleError(ctx, err, "Exoplanet not found", errors.HTTPStatus(err))
	}

	return ctx.JSON(http.StatusOK, SearchResponse{
		ExoplanetID: req.ExoplanetID,
		Dataset:     req.Dataset,
		Data:        row.Map(),
		Found:       true,
	})
}
