package api

import (
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/testutil"
)

func TestPredict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	tests := []struct {
		name        string
		target      string
		body        string
		idField     string
		wantID      string
		wantVersion string
		wantNASA    any
	}{
		{
			name:        "kepler confirmed",
			target:      "/api/predict/kepler",
			body:        `{"koi_name": "K00752.01"}`,
			idField:     "koi_name",
			wantID:      testutil.KeplerConfirmed,
			wantVersion: "Kepler-Fixture-0.1.0",
			wantNASA:    "CONFIRMED",
		},
		{
			name:        "kepler sparse row is zero-filled",
			target:      "/api/predict/kepler",
			body:        `{"koi_name": "K00753.01"}`,
			idField:     "koi_name",
			wantID:      testutil.KeplerSparse,
			wantVersion: "Kepler-Fixture-0.1.0",
			wantNASA:    "CANDIDATE",
		},
		{
			name:        "tess placeholder",
			target:      "/api/predict/tess",
			body:        `{"toi_name": "1000.01"}`,
			idField:     "toi_name",
			wantID:      testutil.TESSCandidate,
			wantVersion: "TESS-Placeholder-0.0.0",
			wantNASA:    nil,
		},
		{
			name:        "tess numeric identifier",
			target:      "/api/predict/tess",
			body:        `{"toi_name": 1000.01}`,
			idField:     "toi_name",
			wantID:      testutil.TESSCandidate,
			wantVersion: "TESS-Placeholder-0.0.0",
			wantNASA:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.target, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decodeJSON(t, rec)
			assert.Contains(t, body["message"], "prediction completed")
			assert.Equal(t, tt.wantNASA, body["nasa_classification"])

			prediction, ok := body["prediction"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, prediction[tt.idField])
			assert.Equal(t, tt.wantVersion, prediction["model_version"])
			assert.IsType(t, true, prediction["is_exoplanet"])

			confidence, ok := prediction["confidence"].(float64)
			require.True(t, ok)
			assert.GreaterOrEqual(t, confidence, 0.5)
			assert.LessOrEqual(t, confidence, 1.0)
		})
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []any
	)
	for range 8 {
		wg.Go(func() {
			rec := env.do(t, http.MethodPost, "/api/predict/kepler", `{"koi_name": "K00752.01"}`)
			if !assert.Equal(t, http.StatusOK, rec.Code) {
				return
			}
			prediction := decodeJSON(t, rec)["prediction"]
			mu.Lock()
			results = append(results, prediction)
			mu.Unlock()
		})
	}
	wg.Wait()

	require.Len(t, results, 8)
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestPredictErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown identifier", "/api/predict/kepler", `{"koi_name": "DOES_NOT_EXIST"}`, http.StatusNotFound, "not found"},
		{"missing identifier", "/api/predict/kepler", `{}`, http.StatusBadRequest, "KOI name is required"},
		{"empty body", "/api/predict/kepler", "", http.StatusBadRequest, "KOI name is required"},
		{"wrong id field", "/api/predict/tess", `{"koi_name": "1000.01"}`, http.StatusBadRequest, "TOI name is required"},
		{"unsupported dataset", "/api/predict/k2", `{"koi_name": "K00752.01"}`, http.StatusBadRequest, "unsupported dataset"},
		{"malformed json", "/api/predict/kepler", `{"koi_name":`, http.StatusBadRequest, ""},
		{"non-object body", "/api/predict/kepler", `["K00752.01"]`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.target, tt.body)
			assertErrorResponse(t, rec, tt.wantCode, tt.wantErr)
		})
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(s *conf.Settings) {
		kepler := s.Datasets["kepler"]
		kepler.Model.Path = filepath.Join("models", "missing.yaml")
		s.Datasets["kepler"] = kepler
	})

	for range 2 {
		rec := env.do(t, http.MethodPost, "/api/predict/kepler", `{"koi_name": "K00752.01"}`)
		assertErrorResponse(t, rec, http.StatusInternalServerError, "")
		assert.Equal(t, "Kepler prediction failed", decodeJSON(t, rec)["message"])
	}

	// The other dataset keeps working
	rec := env.do(t, http.MethodPost, "/api/predict/tess", `{"toi_name": "1000.01"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	models := decodeJSON(t, rec)["models"].([]any)
	require.Len(t, models, 2)
	assert.Equal(t, "failed", models[0].(map[string]any)["state"])
	assert.Equal(t, "loaded", models[1].(map[string]any)["state"])
}

func TestPredictDatasetNotLoaded(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(s *conf.Settings) {
		tess := s.Datasets["tess"]
		tess.CSVFile = "absent.csv"
		s.Datasets["tess"] = tess
	})

	rec := env.do(t, http.MethodPost, "/api/predict/tess", `{"toi_name": "1000.01"}`)
	assertErrorResponse(t, rec, http.StatusBadRequest, "")
	assert.Equal(t, "TESS dataset not found", decodeJSON(t, rec)["message"])
}

func TestIDLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "KOI name", idLabel("koi_name"))
	assert.Equal(t, "TOI name", idLabel("toi_name"))
	assert.Equal(t, "identifier", idLabel("identifier"))
}
