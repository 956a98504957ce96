package app

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/lightcurve"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/testutil"
)

// quietSettings writes fixtures and keeps log output inside dir
func quietSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	settings := testutil.WriteDatasetFixtures(t, dir)
	settings.Lightcurve.ArchiveURL = ""
	settings.Logging = logger.LoggingConfig{
		DefaultLevel: "error",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: filepath.Join(dir, "logs", "app.log"), Level: "error"},
	}
	return settings
}

// Tests below replace the global logger, so they do not run in parallel.

func TestNewWiresComponents(t *testing.T) {
	settings := quietSettings(t)
	settings.Lightcurve.Enabled = true

	a, err := New(context.Background(), settings)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	assert.NotNil(t, a.Metrics)
	assert.NotNil(t, a.Catalog)
	assert.NotNil(t, a.Store)
	require.NotNil(t, a.Lightcurves)
	assert.Equal(t, map[string]bool{"kepler": true, "tess": true}, a.Catalog.Status())

	p, err := a.Predict(context.Background(), "kepler", testutil.KeplerConfirmed)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", p.Disposition)
	assert.Equal(t, "Kepler-Fixture-0.1.0", p.ModelVersion)
	assert.GreaterOrEqual(t, p.Confidence, 0.5)

	artifact, err := a.Lightcurves.GenerateOrFetch(context.Background(), "kepler", testutil.KeplerConfirmed)
	require.NoError(t, err)
	assert.True(t, artifact.Synthetic)
	assert.NotEmpty(t, artifact.Image)
}

func TestNewWithoutLightcurves(t *testing.T) {
	settings := quietSettings(t)
	settings.Lightcurve.Enabled = false

	a, err := New(context.Background(), settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.Lightcurves)
}

func TestPredictErrors(t *testing.T) {
	a, err := New(context.Background(), quietSettings(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Predict(context.Background(), "k2", "K00752.01")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryUnsupportedDataset))

	_, err = a.Predict(context.Background(), "kepler", "K99999.99")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	settings := quietSettings(t)
	settings.WebServer.Port = ""

	_, err := New(context.Background(), settings)
	require.Error(t, err)
}

func TestNewChecksDatasetSchema(t *testing.T) {
	settings := quietSettings(t)
	kepler := settings.Datasets["kepler"]
	kepler.Features = append(slices.Clone(kepler.Features), "koi_not_a_column")
	settings.Datasets["kepler"] = kepler

	a, err := New(context.Background(), settings)
	require.NoError(t, err, "a schema mismatch does not stop startup")
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Predict(context.Background(), "kepler", testutil.KeplerConfirmed)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFeatureMismatch))
	assert.Contains(t, err.Error(), "koi_not_a_column")

	_, err = a.Predict(context.Background(), "tess", testutil.TESSCandidate)
	require.NoError(t, err, "other datasets are unaffected")
}

func TestArchiveClientConfig(t *testing.T) {
	t.Parallel()

	cfg := archiveClientConfig(45 * time.Second)
	assert.Equal(t, 45*time.Second, cfg.ResponseHeaderTimeout)
	assert.GreaterOrEqual(t, cfg.DefaultTimeout, cfg.ResponseHeaderTimeout)

	cfg = archiveClientConfig(0)
	assert.Equal(t, lightcurve.DefaultTimeout, cfg.ResponseHeaderTimeout)
}
