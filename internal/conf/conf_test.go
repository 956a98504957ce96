package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(getDefaultConfig())))

	var fromFile Settings
	require.NoError(t, v.Unmarshal(&fromFile))

	built := NewTestSettings().Build()

	assert.Equal(t, built.WebServer.Port, fromFile.WebServer.Port)
	assert.Equal(t, built.Datasets["kepler"].Features, fromFile.Datasets["kepler"].Features)
	assert.Equal(t, built.Datasets["tess"].Features, fromFile.Datasets["tess"].Features)
	assert.Equal(t, built.Datasets["kepler"].IDColumn, fromFile.Datasets["kepler"].IDColumn)
	assert.Equal(t, 30*time.Second, fromFile.Lightcurve.Timeout)
	assert.Equal(t, int64(123456), fromFile.Lightcurve.DefaultKey)
	assert.Equal(t, "info", fromFile.Logging.DefaultLevel)
	require.NotNil(t, fromFile.Logging.FileOutput)
	assert.Equal(t, "logs/exoplanet.log", fromFile.Logging.FileOutput.Path)
	assert.Len(t, fromFile.Datasets["kepler"].Features, 15)
	assert.Len(t, fromFile.Datasets["tess"].Features, 16)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Settings)
		wantErr string
	}{
		{"defaults are valid", func(*Settings) {}, ""},
		{"bad port", func(s *Settings) { s.WebServer.Port = "99999" }, "webserver port"},
		{"both stores", func(s *Settings) { s.Datastore.MySQL.Enabled = true; s.Datastore.MySQL.Host = "db"; s.Datastore.MySQL.Database = "exo" }, "not both"},
		{"even flatten window", func(s *Settings) { s.Lightcurve.FlattenWindow = 100 }, "flattenwindow"},
		{"zero timeout", func(s *Settings) { s.Lightcurve.Timeout = 0 }, "timeout must be positive"},
		{"unknown backend", func(s *Settings) {
			ds := s.Datasets["kepler"]
			ds.Model.Backend = "xgboost"
			s.Datasets["kepler"] = ds
		}, "unknown model backend"},
		{"duplicate feature", func(s *Settings) {
			ds := s.Datasets["tess"]
			ds.Features = append(ds.Features, "ra")
			s.Datasets["tess"] = ds
		}, "feature ra listed twice"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "dsn is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := NewTestSettings().Build()
			tt.edit(settings)

			err := ValidateSettings(settings)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), tt.wantErr)
		})
	}
}

func TestDisabledDatasetSkipsValidation(t *testing.T) {
	settings := NewTestSettings().
		WithDataset("tess", func(ds *DatasetSettings) {
			ds.Enabled = false
			ds.Features = nil
		}).
		Build()

	require.NoError(t, ValidateSettings(settings))
	assert.Equal(t, []string{"kepler"}, settings.EnabledDatasets())

	_, ok := settings.Dataset("tess")
	assert.False(t, ok)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "Assets")
	require.NoError(t, os.MkdirAll(assets, 0o750))
	target := filepath.Join(assets, "clean_kepler_dataset.csv")
	require.NoError(t, os.WriteFile(target, []byte("kepoi_name\n"), 0o600))

	got, ok := ResolvePath("clean_kepler_dataset.csv", []string{filepath.Join(dir, "missing"), assets})
	require.True(t, ok)
	assert.Equal(t, target, got)

	got, ok = ResolvePath(target, nil)
	require.True(t, ok)
	assert.Equal(t, target, got)

	_, ok = ResolvePath("nope.csv", []string{dir})
	assert.False(t, ok)
}

func TestEnvValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{"bool ok", validateEnvBool, "true", false},
		{"bool bad", validateEnvBool, "yes please", true},
		{"port ok", validateEnvPort, "8080", false},
		{"port bad", validateEnvPort, "0", true},
		{"duration ok", validateEnvDuration, "45s", false},
		{"duration negative", validateEnvDuration, "-1s", true},
		{"backend ok", validateEnvBackend, "tflite", false},
		{"backend bad", validateEnvBackend, "xgboost", true},
		{"path ok", validateEnvPath, "data/predictions.db", false},
		{"path traversal", validateEnvPath, "../../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	t.Setenv("EXO_WEBSERVER_PORT", "not-a-port")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXO_WEBSERVER_PORT")
}
