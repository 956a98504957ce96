// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Model backends understood by the classifier
const (
	BackendTFLite      = "tflite"
	BackendLogistic    = "logistic"
	BackendPlaceholder = "placeholder"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	for _, name := range settings.EnabledDatasets() {
		ds := settings.Datasets[name]
		if err := validateDatasetSettings(name, &ds); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if err := validateDatastoreSettings(&settings.Datastore); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLightcurveSettings(&settings.Lightcurve); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSentrySettings(&settings.Sentry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver port must be between 1 and 65535, got %q", settings.Port)
	}
	return nil
}

func validateDatasetSettings(name string, settings *DatasetSettings) error {
	var problems []string

	if settings.IDField == "" {
		problems = append(problems, "idfield is required")
	}
	if settings.IDColumn == "" {
		problems = append(problems, "idcolumn is required")
	}
	if settings.CSVFile == "" {
		problems = append(problems, "csvfile is required")
	}
	if len(settings.Features) == 0 {
		problems = append(problems, "at least one feature column is required")
	}

	seen := make(map[string]bool, len(settings.Features))
	for _, feature := range settings.Features {
		if seen[feature] {
			problems = append(problems, fmt.Sprintf("feature %s listed twice", feature))
		}
		seen[feature] = true
	}

	if !isKnownBackend(settings.Model.Backend) {
		problems = append(problems, fmt.Sprintf("unknown model backend %q", settings.Model.Backend))
	} else if settings.Model.Backend != BackendPlaceholder && settings.Model.Path == "" {
		problems = append(problems, "model path is required for backend "+settings.Model.Backend)
	}

	if settings.Model.Threads < 0 {
		problems = append(problems, "model threads cannot be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("dataset %s: %s", name, strings.Join(problems, ", "))
	}
	return nil
}

func validateDatastoreSettings(settings *DatastoreSettings) error {
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		return fmt.Errorf("datastore: enable either sqlite or mysql, not both")
	}
	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		return fmt.Errorf("datastore: one of sqlite or mysql must be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return fmt.Errorf("datastore: sqlite path is required")
	}
	if settings.MySQL.Enabled && (settings.MySQL.Host == "" || settings.MySQL.Database == "") {
		return fmt.Errorf("datastore: mysql host and database are required")
	}
	return nil
}

func validateLightcurveSettings(settings *LightcurveSettings) error {
	if !settings.Enabled {
		return nil
	}

	var problems []string

	if settings.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if settings.SegmentLimit < 1 {
		problems = append(problems, "segmentlimit must be at least 1")
	}
	if settings.FlattenWindow < 5 || settings.FlattenWindow%2 == 0 {
		problems = append(problems, "flattenwindow must be an odd number of at least 5")
	}
	if settings.BinPoints < 10 {
		problems = append(problems, "binpoints must be at least 10")
	}
	if settings.SigmaClip <= 0 {
		problems = append(problems, "sigmaclip must be positive")
	}
	if settings.ArchiveURL != "" {
		if u, err := url.Parse(settings.ArchiveURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid archiveurl %q", settings.ArchiveURL))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("lightcurve: %s", strings.Join(problems, ", "))
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry: dsn is required when enabled")
	}
	if settings.SampleRate < 0 || settings.SampleRate > 1 {
		return fmt.Errorf("sentry: samplerate must be between 0 and 1")
	}
	return nil
}

func isKnownBackend(backend string) bool {
	return slices.Contains([]string{BackendTFLite, BackendLogistic, BackendPlaceholder}, backend)
}
