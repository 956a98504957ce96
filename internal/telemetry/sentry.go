// Package telemetry provides privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// flushTimeout bounds how long Flush waits for queued events
const flushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK when enabled in settings.
// A nil transport selects the SDK's default HTTP transport.
func InitSentry(settings *conf.Settings, transport sentry.Transport) error {
	log := logger.Global().Module("telemetry")

	if !settings.Sentry.Enabled {
		log.Info("sentry telemetry is disabled")
		errors.SetTelemetryReporter(nil)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       settings.Sentry.SampleRate,
		Environment:      settings.Sentry.Environment,
		AttachStacktrace: false,
		ServerName:       "",
		Release:          fmt.Sprintf("exoplanet-go@%s", settings.Version),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	configureSentryScope(settings)
	sentryInitialized.Store(true)
	InitializeErrorIntegration(true)

	log.Info("sentry telemetry initialized",
		logger.String("version", settings.Version),
		logger.String("environment", settings.Sentry.Environment))

	return nil
}

// applyPrivacyFilters strips host and user identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}

	return event
}

func configureSentryScope(settings *conf.Settings) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":     settings.Main.Name,
			"version":  settings.Version,
			"datasets": settings.EnabledDatasets(),
		})
	})
}

// CaptureMessage sends a plain message event tagged with a component
func CaptureMessage(message string, level sentry.Level, component string) {
	if !sentryInitialized.Load() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetLevel(level)
		sentry.CaptureMessage(errors.ScrubMessage(message))
	})
}

// Flush waits for queued events to be delivered. Called on shutdown.
func Flush() {
	if sentryInitialized.Load() {
		sentry.Flush(flushTimeout)
	}
}
