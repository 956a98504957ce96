// Package conf loads and validates exoplanet-go settings from config.yaml,
// built-in defaults and EXO_* environment variables.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Build information, set by main at startup
var (
	BuildVersion = "dev"
	BuildDate    = "unknown"
)

// Settings contains all configuration options for the service.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string // instance name, shown by the health endpoint
	}

	WebServer  WebServerSettings
	Datasets   map[string]DatasetSettings // keyed by dataset name, e.g. "kepler"
	Datastore  DatastoreSettings
	Lightcurve LightcurveSettings
	Sentry     SentrySettings
	Metrics    MetricsSettings
	Logging    logger.LoggingConfig

	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`
}

// WebServerSettings contains HTTP listener options
type WebServerSettings struct {
	Host            string        // listen address, empty for all interfaces
	Port            string        // listen port
	AllowedOrigins  []string      // CORS origins, empty allows any
	BodyLimit       string        // maximum request body, echo syntax such as "1M"
	ReadTimeout     time.Duration // per-request read deadline
	WriteTimeout    time.Duration // per-request write deadline
	ShutdownTimeout time.Duration // graceful shutdown bound
	Debug           bool          // echo debug mode
}

// DatasetSettings describes one survey dataset and the model that scores it
type DatasetSettings struct {
	Enabled      bool
	Title        string   // display name, used in model versions and messages
	IDField      string   // JSON request field carrying the identifier, e.g. "koi_name"
	IDColumn     string   // CSV column holding the identifier
	Disposition  string   // CSV column with the catalog disposition, optional
	SecondaryKey string   // CSV column with the numeric survey ID, optional
	CSVFile      string   // dataset file name or path
	OptionsFile  string   // identifier list for autocomplete
	SearchPaths  []string // directories tried in order when CSVFile is relative
	Features     []string // model feature columns, in model order
	Model        ModelSettings
	Lightcurve   LightcurveTarget
}

// ModelSettings selects and configures the scoring backend
type ModelSettings struct {
	Backend string // "tflite", "logistic" or "placeholder"
	Path    string // artifact path, unused by the placeholder backend
	Version string // overrides the derived version tag when set
	Threads int    // tflite interpreter threads, 0 picks physical cores
}

// LightcurveTarget describes how a dataset maps to archive queries
type LightcurveTarget struct {
	Prefix string // target name prefix, "KIC" or "TIC"
	Author string // pipeline that produced the light curves
}

// DatastoreSettings selects the database backend
type DatastoreSettings struct {
	SQLite struct {
		Enabled bool
		Path    string
	}
	MySQL struct {
		Enabled  bool
		Username string
		Password string
		Host     string
		Port     string
		Database string
	}
	SlowQueryThreshold time.Duration
}

// LightcurveSettings configures retrieval, cleaning and rendering
type LightcurveSettings struct {
	Enabled       bool
	ArchiveURL    string        // base URL of the light-curve archive API
	Timeout       time.Duration // hard bound for one generate call
	SegmentLimit  int           // maximum observation segments per request
	ReducedMode   bool          // skip gap filling, flattening and binning
	DefaultKey    int64         // secondary key used when none can be derived
	SigmaClip     float64       // outlier threshold in standard deviations
	FlattenWindow int           // Savitzky-Golay window length, odd
	BinPoints     int           // number of bins after flattening
	CacheTTL      time.Duration // in-memory image cache lifetime
	RateLimit     float64       // generate requests per second per client
	RateBurst     int
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	settings.Version = BuildVersion
	settings.BuildDate = BuildDate

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, binds environment variables and reads the config file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		logger.Global().Module("config").Warn("environment override problems", logger.Error(err))
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(configPath).
			Build()
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o600); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(configPath).
			Build()
	}

	logger.Global().Module("config").Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default configuration.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// the file is embedded at build time
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first use
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				logger.Global().Module("config").Error("error loading settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// Dataset returns the settings of an enabled dataset
func (s *Settings) Dataset(name string) (DatasetSettings, bool) {
	ds, ok := s.Datasets[name]
	if !ok || !ds.Enabled {
		return DatasetSettings{}, false
	}
	return ds, true
}

// EnabledDatasets returns the names of enabled datasets
func (s *Settings) EnabledDatasets() []string {
	names := make([]string, 0, len(s.Datasets))
	for name, ds := range s.Datasets {
		if ds.Enabled {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
