package conf

import (
	"slices"
	"time"

	"github.com/tphakala/exoplanet-go/internal/logger"
)

// SettingsBuilder assembles Settings in code, mainly for tests and tools
// that run without a config file.
type SettingsBuilder struct {
	settings *Settings
}

// NewTestSettings returns a builder preloaded with the built-in defaults.
// Logging goes to the console only.
func NewTestSettings() *SettingsBuilder {
	s := &Settings{
		Version:   BuildVersion,
		BuildDate: BuildDate,
	}
	s.Main.Name = "exoplanet-go"

	s.WebServer = WebServerSettings{
		Port:            "8080",
		BodyLimit:       "1M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	s.Datasets = map[string]DatasetSettings{
		"kepler": {
			Enabled:      true,
			Title:        "Kepler",
			IDField:      "koi_name",
			IDColumn:     "kepoi_name",
			Disposition:  "koi_disposition",
			SecondaryKey: "kepid",
			CSVFile:      "clean_kepler_dataset.csv",
			OptionsFile:  "kepler_options.txt",
			SearchPaths:  slices.Clone(defaultSearchPaths),
			Features:     slices.Clone(keplerFeatures),
			Model:        ModelSettings{Backend: BackendLogistic, Path: "models/kepler_logistic.yaml"},
			Lightcurve:   LightcurveTarget{Prefix: "KIC", Author: "Kepler"},
		},
		"tess": {
			Enabled:      true,
			Title:        "TESS",
			IDField:      "toi_name",
			IDColumn:     "toi",
			SecondaryKey: "tid",
			CSVFile:      "clean_tess_dataset.csv",
			OptionsFile:  "tess_options.txt",
			SearchPaths:  slices.Clone(defaultSearchPaths),
			Features:     slices.Clone(tessFeatures),
			Model:        ModelSettings{Backend: BackendPlaceholder},
			Lightcurve:   LightcurveTarget{Prefix: "TIC", Author: "SPOC"},
		},
	}

	s.Datastore.SQLite.Enabled = true
	s.Datastore.SQLite.Path = "predictions.db"
	s.Datastore.MySQL.Port = "3306"
	s.Datastore.SlowQueryThreshold = 200 * time.Millisecond

	s.Lightcurve = LightcurveSettings{
		Enabled:       true,
		Timeout:       30 * time.Second,
		SegmentLimit:  3,
		DefaultKey:    123456,
		SigmaClip:     5,
		FlattenWindow: 101,
		BinPoints:     500,
		CacheTTL:      time.Hour,
		RateLimit:     1,
		RateBurst:     5,
	}

	s.Sentry.SampleRate = 1
	s.Metrics.Enabled = true

	s.Logging = logger.LoggingConfig{
		DefaultLevel:  "info",
		Timezone:      "UTC",
		Console:       &logger.ConsoleOutput{Enabled: true, Level: "info"},
		FileOutput:    &logger.FileOutput{Enabled: false},
		ModuleOutputs: map[string]logger.ModuleOutput{},
	}

	return &SettingsBuilder{settings: s}
}

// WithDataset edits one dataset entry in place
func (b *SettingsBuilder) WithDataset(name string, edit func(*DatasetSettings)) *SettingsBuilder {
	ds := b.settings.Datasets[name]
	edit(&ds)
	b.settings.Datasets[name] = ds
	return b
}

// WithDataDir points every dataset search path at dir
func (b *SettingsBuilder) WithDataDir(dir string) *SettingsBuilder {
	for name, ds := range b.settings.Datasets {
		ds.SearchPaths = []string{dir}
		b.settings.Datasets[name] = ds
	}
	return b
}

// WithSQLite stores data in the given SQLite file
func (b *SettingsBuilder) WithSQLite(path string) *SettingsBuilder {
	b.settings.Datastore.SQLite.Enabled = true
	b.settings.Datastore.SQLite.Path = path
	b.settings.Datastore.MySQL.Enabled = false
	return b
}

// WithLightcurve edits the light-curve settings
func (b *SettingsBuilder) WithLightcurve(edit func(*LightcurveSettings)) *SettingsBuilder {
	edit(&b.settings.Lightcurve)
	return b
}

// WithWebServer edits the HTTP listener settings
func (b *SettingsBuilder) WithWebServer(edit func(*WebServerSettings)) *SettingsBuilder {
	edit(&b.settings.WebServer)
	return b
}

// Build returns the assembled settings
func (b *SettingsBuilder) Build() *Settings {
	return b.settings
}
