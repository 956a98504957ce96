package telemetry

import (
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/privacy"
)

// InitializeErrorIntegration routes built errors to Sentry when enabled and
// installs the shared privacy scrubber.
func InitializeErrorIntegration(enabled bool) {
	errors.SetTelemetryReporter(errors.NewSentryReporter(enabled))
	errors.SetPrivacyScrubber(ScrubMessage)
}

// ScrubMessage redacts credentials and secrets, then anonymizes the URLs and
// addresses that remain.
func ScrubMessage(message string) string {
	return privacy.ScrubMessage(errors.BasicScrub(message))
}
