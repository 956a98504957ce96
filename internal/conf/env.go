// env.go - environment variable overrides
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "EXO_DEBUG", validateEnvBool},

		{"webserver.host", "EXO_WEBSERVER_HOST", nil},
		{"webserver.port", "EXO_WEBSERVER_PORT", validateEnvPort},

		{"datastore.sqlite.path", "EXO_DATASTORE_SQLITE_PATH", validateEnvPath},
		{"datastore.mysql.enabled", "EXO_DATASTORE_MYSQL_ENABLED", validateEnvBool},
		{"datastore.mysql.host", "EXO_DATASTORE_MYSQL_HOST", nil},
		{"datastore.mysql.port", "EXO_DATASTORE_MYSQL_PORT", validateEnvPort},
		{"datastore.mysql.username", "EXO_DATASTORE_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", "EXO_DATASTORE_MYSQL_PASSWORD", nil},
		{"datastore.mysql.database", "EXO_DATASTORE_MYSQL_DATABASE", nil},

		{"datasets.kepler.model.path", "EXO_KEPLER_MODEL_PATH", validateEnvPath},
		{"datasets.kepler.model.backend", "EXO_KEPLER_MODEL_BACKEND", validateEnvBackend},

		{"lightcurve.archiveurl", "EXO_LIGHTCURVE_ARCHIVEURL", nil},
		{"lightcurve.timeout", "EXO_LIGHTCURVE_TIMEOUT", validateEnvDuration},
		{"lightcurve.reducedmode", "EXO_LIGHTCURVE_REDUCEDMODE", validateEnvBool},

		{"sentry.enabled", "EXO_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "EXO_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every override and collects validation warnings
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 30s: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvBackend(value string) error {
	if !isKnownBackend(value) {
		return fmt.Errorf("must be one of tflite, logistic, placeholder")
	}
	return nil
}

// validateEnvPath rejects traversal; relative paths are allowed for data files
func validateEnvPath(value string) error {
	cleanedPath := filepath.Clean(value)
	for _, part := range strings.Split(filepath.ToSlash(cleanedPath), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected in cleaned path: %s", cleanedPath)
		}
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
