package api

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/lightcurve"
	"github.com/tphakala/exoplanet-go/internal/testutil"
)

func withoutRateLimit(s *conf.Settings) { s.Lightcurve.RateLimit = 0 }

func TestGenerateLightcurve(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withoutRateLimit)

	rec := env.do(t, http.MethodPost, "/api/lightcurve/generate", `{"koi_name": "K00752.01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var first GenerateResponse
	require.NoError(t, decodeInto(rec, &first))
	assert.True(t, first.Success)
	assert.True(t, first.Synthetic, "no archive configured")
	assert.Empty(t, first.Message)
	assert.Equal(t, testutil.KeplerConfirmed, first.CandidateID)
	assert.Equal(t, testutil.KeplerKepid, first.SecondaryKey)
	assert.Equal(t, "lightcurve_10797460.png", first.Filename)
	assert.Equal(t, "Lightcurve for K00752.01", first.Title)
	assert.Equal(t, "/api/lightcurve/K00752.01", first.URL)

	rec = env.do(t, http.MethodPost, "/api/lightcurve/generate", `{"koi_name": "K00752.01"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var second GenerateResponse
	require.NoError(t, decodeInto(rec, &second))
	assert.Equal(t, "Lightcurve already exists", second.Message)
	assert.Equal(t, first.Filename, second.Filename)

	sqlite, ok := env.store.(*datastore.SQLiteStore)
	require.True(t, ok)
	var rows int64
	require.NoError(t, sqlite.DB.Model(&datastore.Lightcurve{}).Where("candidate_id = ?", testutil.KeplerConfirmed).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "a repeated request stores nothing new")
}

// hungFetcher never answers until its context ends
type hungFetcher struct{}

func (hungFetcher) Fetch(ctx context.Context, _ lightcurve.Target, _ int) ([]lightcurve.Segment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerateLightcurveTimeout(t *testing.T) {
	t.Parallel()
	env := newTestEnvWithFetcher(t, hungFetcher{}, func(s *conf.Settings) {
		withoutRateLimit(s)
		s.Lightcurve.Timeout = 100 * time.Millisecond
	})

	start := time.Now()
	rec := env.do(t, http.MethodPost, "/api/lightcurve/generate", `{"koi_name": "K00752.01"}`)
	assert.Less(t, time.Since(start), 5*time.Second)

	assertErrorResponse(t, rec, http.StatusRequestTimeout, "")
	body := decodeJSON(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Lightcurve generation timed out", body["message"])

	// nothing was stored, so the image stays missing
	rec = env.do(t, http.MethodGet, "/api/lightcurve/K00752.01", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateLightcurveIdentifierFields(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withoutRateLimit)

	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{"identifier field", `{"identifier": "K00753.01"}`, testutil.KeplerSparse},
		{"tess via toi_name", `{"toi_name": "1000.01", "dataset": "tess"}`, testutil.TESSCandidate},
		{"koi_name wins", `{"koi_name": "K00752.02", "identifier": "ignored"}`, testutil.KeplerFalsePositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/lightcurve/generate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp GenerateResponse
			require.NoError(t, decodeInto(rec, &resp))
			assert.Equal(t, tt.wantID, resp.CandidateID)
			assert.Positive(t, resp.SecondaryKey)
		})
	}
}

func TestGenerateLightcurveErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withoutRateLimit)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"missing identifier", `{}`, http.StatusBadRequest, "KOI name is required"},
		{"blank identifier", `{"koi_name": "  "}`, http.StatusBadRequest, "KOI name is required"},
		{"malformed json", `{"koi_name":`, http.StatusBadRequest, "Invalid request body"},
		{"unsupported dataset", `{"koi_name": "K00752.01", "dataset": "k2"}`, http.StatusBadRequest, "Lightcurve generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/lightcurve/generate", tt.body)
			assertErrorResponse(t, rec, tt.wantCode, "")

			body := decodeJSON(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

func TestGetLightcurve(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withoutRateLimit)

	rec := env.do(t, http.MethodPost, "/api/lightcurve/generate", `{"koi_name": "K00752.01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, ref := range []string{"K00752.01", "10797460", "lightcurve_10797460.png"} {
		t.Run(ref, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/lightcurve/"+ref, "")
			require.Equal(t, http.StatusOK, rec.Code)

			assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
			assert.Equal(t, `inline; filename="lightcurve_10797460.png"`, rec.Header().Get(echo.HeaderContentDisposition))
			assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

			_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err, "body must be a PNG image")
		})
	}

	t.Run("unknown", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/lightcurve/K99999.01", "")
		assertErrorResponse(t, rec, http.StatusNotFound, "")
		assert.Equal(t, "Lightcurve not found", decodeJSON(t, rec)["message"])
	})
}

func TestGenerateLightcurveRateLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(s *conf.Settings) {
		s.Lightcurve.RateLimit = 0.001
		s.Lightcurve.RateBurst = 1
	})

	rec := env.do(t, http.MethodPost, "/api/lightcurve/generate", `{"koi_name": "K00752.01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/lightcurve/generate", `{"koi_name": "K00752.01"}`)
	assertErrorResponse(t, rec, http.StatusTooManyRequests, "")
	assert.Equal(t, false, decodeJSON(t, rec)["success"])

	// Image reads are not limited
	rec = env.do(t, http.MethodGet, "/api/lightcurve/K00752.01", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
