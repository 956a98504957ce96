package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/testutil"
)

func TestGetDatasets(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, []any{"kepler", "tess"}, body["datasets"])
	assert.Equal(t, true, body["kepler_loaded"])
	assert.Equal(t, true, body["tess_loaded"])
}

func TestGetDatasetInfo(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	t.Run("known dataset", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/datasets/kepler", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeJSON(t, rec)
		assert.Equal(t, "kepler", body["name"])
		assert.EqualValues(t, testutil.OptionsPerDataset, body["options_count"])
		assert.Len(t, body["sample_options"], 5)
		assert.Equal(t, "available", body["status"])
	})

	t.Run("unknown dataset", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/datasets/k2", "")
		assertErrorResponse(t, rec, http.StatusBadRequest, "unsupported dataset")
	})
}

func TestAutocomplete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantCount int
		wantFirst string
	}{
		{"no query returns everything", "/api/autocomplete/kepler", http.StatusOK, testutil.OptionsPerDataset, "K00752.01"},
		{"query filters case-insensitively", "/api/autocomplete/kepler?q=k0075", http.StatusOK, 8, "K00752.01"},
		{"query without matches", "/api/autocomplete/kepler?q=zzz", http.StatusOK, 0, ""},
		{"tess list", "/api/autocomplete/tess?q=780", http.StatusOK, 1, "780.01"},
		{"unknown dataset", "/api/autocomplete/k2", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, "")
			if tt.wantCode != http.StatusOK {
				assertErrorResponse(t, rec, tt.wantCode, "")
				return
			}

			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeJSON(t, rec)
			suggestions, ok := body["suggestions"].([]any)
			require.True(t, ok, "suggestions must be a JSON array")
			assert.Len(t, suggestions, tt.wantCount)
			assert.EqualValues(t, tt.wantCount, body["total_count"])
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, suggestions[0])
			}
		})
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"substring match", `{"exoplanet_id": "k00752", "dataset": "kepler"}`, http.StatusOK, ""},
		{"dataset defaults to kepler", `{"exoplanet_id": "K00753.01"}`, http.StatusOK, ""},
		{"tess", `{"exoplanet_id": "1001", "dataset": "tess"}`, http.StatusOK, ""},
		{"missing id", `{"dataset": "kepler"}`, http.StatusBadRequest, "Exoplanet ID is required"},
		{"blank id", `{"exoplanet_id": "   "}`, http.StatusBadRequest, "Exoplanet ID is required"},
		{"invalid dataset", `{"exoplanet_id": "K00752.01", "dataset": "k2"}`, http.StatusBadRequest, "unsupported dataset"},
		{"not found", `{"exoplanet_id": "K99999.99"}`, http.StatusNotFound, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/search", tt.body)
			if tt.wantCode != http.StatusOK {
				assertErrorResponse(t, rec, tt.wantCode, tt.wantErr)
				return
			}

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decodeJSON(t, rec)
			assert.Equal(t, true, body["found"])
			data, ok := body["data"].(map[string]any)
			require.True(t, ok)
			assert.NotEmpty(t, data)
		})
	}

	t.Run("first match wins", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/search", `{"exoplanet_id": "K00752"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeJSON(t, rec)["data"].(map[string]any)
		assert.Equal(t, testutil.KeplerConfirmed, data["kepoi_name"])
		assert.Equal(t, "CONFIRMED", data["koi_disposition"])
	})
}
