// Package lightcurve retrieves, cleans and renders light curves for
// candidate stars, falling back to a synthetic plot when the archive
// cannot deliver.
package lightcurve

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// DefaultTimeout bounds one Generate call when the configuration leaves it unset
const DefaultTimeout = 30 * time.Second

// Fallback reasons, also used as metric labels
const (
	reasonDisabled = "archive_disabled"
	reasonFetch    = "fetch_failed"
	reasonProcess  = "processing_failed"
	reasonRender   = "render_failed"
)

// Target identifies the star whose light curve is wanted
type Target struct {
	Identifier string // candidate identifier, e.g. K00752.01
	Dataset    string
	Prefix     string // catalog prefix, e.g. KIC
	Author     string // producing pipeline, e.g. Kepler
	Key        int64  // survey ID
}

// Name is the archive target name, e.g. "KIC 10797460"
func (t Target) Name() string {
	return fmt.Sprintf("%s %d", t.Prefix, t.Key)
}

// Filename is the served image name
func (t Target) Filename() string {
	return fmt.Sprintf("lightcurve_%d.png", t.Key)
}

// Result is either Rendered or Failed
type Result interface {
	isResult()
}

// Rendered carries a PNG. Real is false for the synthetic fallback.
type Rendered struct {
	Real         bool
	Image        []byte
	Filename     string
	SecondaryKey int64
}

// Failed means no image could be produced
type Failed struct {
	Reason string
}

func (Rendered) isResult() {}
func (Failed) isResult()   {}

// Pipeline runs fetch, clean and render for one target under a deadline
type Pipeline struct {
	fetcher  Fetcher // nil when no archive is configured
	settings conf.LightcurveSettings
	metrics  *metrics.LightcurveMetrics
	log      logger.Logger
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithPipelineMetrics reports to m
func WithPipelineMetrics(m *metrics.LightcurveMetrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPipelineLogger overrides the module logger
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline creates a pipeline. A nil fetcher always renders the synthetic
// curve.
func NewPipeline(settings conf.LightcurveSettings, fetcher Fetcher, opts ...PipelineOption) *Pipeline {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	p := &Pipeline{
		fetcher:  fetcher,
		settings: settings,
		log:      logger.Global().Module("lightcurve"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type outcome struct {
	result Result
	err    error
}

// Generate produces a light curve for target. It returns at the configured
// deadline even if the work is still running; the abandoned work sees its
// context cancelled.
func (p *Pipeline) Generate(ctx context.Context, target Target) (Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.settings.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		result, err := p.run(ctx, target, start)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() != nil {
			o.err = p.deadlineError(ctx, target, start)
		}
		p.record(start, o.err)
		return o.result, o.err

	case <-ctx.Done():
		err := p.deadlineError(ctx, target, start)
		p.record(start, err)
		return nil, err
	}
}

// deadlineError classifies a finished context as a timeout or a caller
// cancellation.
func (p *Pipeline) deadlineError(ctx context.Context, target Target, start time.Time) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.New(ctx.Err()).
			Component("lightcurve").
			Category(errors.CategoryCancellation).
			Context("target", target.Name()).
			Build()
	}

	return p.timeoutError(ctx.Err(), target, start)
}

func (p *Pipeline) timeoutError(err error, target Target, start time.Time) error {
	p.log.Warn("light curve generation timed out",
		logger.String("target", target.Name()),
		logger.Duration("timeout", p.settings.Timeout),
		logger.Error(err))
	return errors.NewTimeout(err, metrics.OpLightcurveGenerate).
		Component("lightcurve").
		Context("target", target.Name()).
		Timing(metrics.OpLightcurveGenerate, time.Since(start)).
		Build()
}

func (p *Pipeline) record(start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		p.metrics.RecordError(metrics.OpLightcurveGenerate, string(errors.CategoryOf(err)))
	}
	p.metrics.RecordOperation(metrics.OpLightcurveGenerate, status)
	p.metrics.RecordDuration(metrics.OpLightcurveGenerate, time.Since(start).Seconds())
}

func (p *Pipeline) run(ctx context.Context, target Target, start time.Time) (Result, error) {
	log := p.log.With(logger.String("target", target.Name()))

	if p.fetcher == nil {
		return p.synthetic(target, reasonDisabled), nil
	}

	segments, err := p.fetcher.Fetch(ctx, target, p.settings.SegmentLimit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// an unresponsive archive is a timeout, not a reason to fall back
		if errors.IsCategory(err, errors.CategoryTimeout) {
			return nil, p.timeoutError(err, target, start)
		}
		log.Warn("archive fetch failed, using synthetic curve", logger.Error(err))
		return p.synthetic(target, reasonFetch), nil
	}
	if len(segments) == 0 {
		log.Info("archive has no observations")
		return Failed{Reason: "no observations"}, nil
	}

	series, err := Stitch(segments)
	if err == nil {
		series, err = Clean(series, p.settings.SigmaClip, p.settings.FlattenWindow, p.settings.BinPoints, p.settings.ReducedMode)
	}
	if err != nil {
		log.Warn("light curve processing failed, using synthetic curve", logger.Error(err))
		return p.synthetic(target, reasonProcess), nil
	}

	renderStart := time.Now()
	image, err := Render(series, RenderOptions{
		Title: fmt.Sprintf("Light Curve for %s (%s)", target.Identifier, target.Name()),
	})
	if p.metrics != nil {
		p.metrics.RecordDuration(metrics.OpRender, time.Since(renderStart).Seconds())
	}
	if err != nil {
		log.Warn("rendering failed, using synthetic curve", logger.Error(err))
		return p.synthetic(target, reasonRender), nil
	}

	if p.metrics != nil {
		p.metrics.RecordImage(metrics.SourceArchive)
	}
	log.Info("light curve rendered",
		logger.Int("segments", len(segments)),
		logger.Int("points", series.Len()))

	return Rendered{
		Real:         true,
		Image:        image,
		Filename:     target.Filename(),
		SecondaryKey: target.Key,
	}, nil
}

// synthetic renders the fallback curve. Only a render failure yields Failed.
func (p *Pipeline) synthetic(target Target, reason string) Result {
	if p.metrics != nil {
		p.metrics.RecordFallback(reason)
	}

	image, err := Render(Synthetic(target.Key), RenderOptions{
		Title: fmt.Sprintf("Light Curve for %s", target.Name()),
		YMin:  syntheticYMin,
		YMax:  syntheticYMax,
	})
	if err != nil {
		p.log.Error("synthetic rendering failed",
			logger.String("target", target.Name()),
			logger.Error(err))
		return Failed{Reason: "render failed: " + errors.ScrubMessage(err.Error())}
	}

	if p.metrics != nil {
		p.metrics.RecordImage(metrics.SourceSynthetic)
	}
	return Rendered{
		Real:         false,
		Image:        image,
		Filename:     target.Filename(),
		SecondaryKey: target.Key,
	}
}
