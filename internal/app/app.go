// Package app assembles the service components from settings. Every CLI
// command starts from an App so the server and the one-shot commands share
// the same wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/exoplanet-go/internal/classifier"
	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/dataset"
	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/features"
	"github.com/tphakala/exoplanet-go/internal/httpclient"
	"github.com/tphakala/exoplanet-go/internal/lightcurve"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability"
	"github.com/tphakala/exoplanet-go/internal/telemetry"
)

// archiveUserAgent identifies outbound light-curve archive requests
const archiveUserAgent = "exoplanet-go"

// App holds the initialized components
type App struct {
	Settings    *conf.Settings
	Log         logger.Logger
	Metrics     *observability.Metrics
	Catalog     *dataset.Catalog
	Predictor   *classifier.Service
	Store       datastore.Interface
	Lightcurves *lightcurve.Service // nil when light curves are disabled

	extractors map[string]*features.Extractor
	schemaErrs map[string]error
	archive    *httpclient.Client
}

// New initializes every component in dependency order. Missing dataset
// files and model artifacts are not fatal; store and metrics failures are.
func New(ctx context.Context, settings *conf.Settings) (*App, error) {
	if err := conf.ValidateSettings(settings); err != nil {
		return nil, err
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	log := central.Module("app")

	if err := telemetry.InitSentry(settings, nil); err != nil {
		// Error reporting is optional, keep running without it
		log.Warn("sentry initialization failed", logger.Error(err))
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	a := &App{
		Settings:   settings,
		Log:        log,
		Metrics:    m,
		extractors: make(map[string]*features.Extractor),
		schemaErrs: make(map[string]error),
	}

	a.Catalog, err = dataset.NewCatalog(ctx, settings, dataset.WithRecorder(m.Dataset))
	if err != nil {
		return nil, err
	}
	for _, name := range settings.EnabledDatasets() {
		a.extractors[name] = features.NewExtractor(settings.Datasets[name].Features)
		a.checkSchema(name)
	}

	a.Predictor = classifier.NewService(settings, classifier.WithMetrics(m.Classifier))

	a.Store, err = datastore.New(settings, datastore.WithMetrics(m.Datastore))
	if err != nil {
		return nil, err
	}
	if err := a.Store.Open(); err != nil {
		return nil, err
	}

	if settings.Lightcurve.Enabled {
		if err := a.initLightcurves(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	log.Info("components initialized",
		logger.String("version", settings.Version),
		logger.Int("datasets", len(a.extractors)),
		logger.Bool("mysql", settings.Datastore.MySQL.Enabled),
		logger.Bool("lightcurves", a.Lightcurves != nil))

	return a, nil
}

// checkSchema validates a loaded dataset against its feature columns once.
// A mismatch is kept and returned by every Predict call for that dataset.
func (a *App) checkSchema(name string) {
	idx, err := a.Catalog.Dataset(name)
	if err != nil {
		return
	}
	if err := a.extractors[name].CheckSchema(idx.Header()); err != nil {
		a.schemaErrs[name] = err
		a.Log.Error("dataset does not match its feature columns",
			logger.String("dataset", name),
			logger.String("path", idx.Path()),
			logger.Error(err))
	}
}

func (a *App) initLightcurves() error {
	settings := a.Settings.Lightcurve

	var fetcher lightcurve.Fetcher
	if settings.ArchiveURL != "" {
		a.archive = httpclient.New(archiveClientConfig(settings.Timeout))
		archive, err := lightcurve.NewArchiveFetcher(settings.ArchiveURL, a.archive, a.Metrics.Lightcurve)
		if err != nil {
			return err
		}
		fetcher = archive
	} else {
		a.Log.Info("no light-curve archive configured, serving synthetic light curves")
	}

	pipeline := lightcurve.NewPipeline(settings, fetcher, lightcurve.WithPipelineMetrics(a.Metrics.Lightcurve))
	a.Lightcurves = lightcurve.NewService(a.Settings, pipeline, a.Store,
		lightcurve.WithKeyResolver(a.Catalog),
		lightcurve.WithServiceMetrics(a.Metrics.Lightcurve))
	return nil
}

// archiveClientConfig keeps the response header timeout no shorter than the
// generation deadline, so a hung archive surfaces as a timeout.
func archiveClientConfig(timeout time.Duration) *httpclient.Config {
	if timeout <= 0 {
		timeout = lightcurve.DefaultTimeout
	}
	return &httpclient.Config{
		DefaultTimeout:        timeout,
		ResponseHeaderTimeout: timeout,
		UserAgent:             archiveUserAgent,
	}
}

// Prediction is one scored candidate together with its catalog row
type Prediction struct {
	classifier.Result
	Disposition string
}

// Predict looks identifier up in dataset and scores its feature row
func (a *App) Predict(ctx context.Context, name, identifier string) (*Prediction, error) {
	extractor, ok := a.extractors[name]
	if !ok {
		return nil, errors.UnsupportedDataset(name)
	}
	if err := a.schemaErrs[name]; err != nil {
		return nil, err
	}

	row, err := a.Catalog.Lookup(name, identifier)
	if err != nil {
		return nil, err
	}
	vec, err := extractor.Extract(row)
	if err != nil {
		return nil, err
	}

	result, err := a.Predictor.Predict(ctx, name, identifier, vec)
	if err != nil {
		return nil, err
	}
	return &Prediction{Result: result, Disposition: row.Disposition()}, nil
}

// Close releases resources in reverse order of initialization
func (a *App) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.Lightcurves != nil {
		a.Lightcurves.Flush()
	}
	if a.archive != nil {
		a.archive.Close()
	}
	if a.Store != nil {
		keep(a.Store.Close())
	}
	if a.Predictor != nil {
		keep(a.Predictor.Close())
	}

	telemetry.Flush()
	if err := logger.Global().Flush(); err != nil {
		keep(err)
	}
	return firstErr
}
