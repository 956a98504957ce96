package classifier

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/features"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// Result is one scored candidate. Results are never modified after creation.
type Result struct {
	Identifier   string    `json:"identifier"`
	Dataset      string    `json:"dataset"`
	Confidence   float64   `json:"confidence"`
	IsExoplanet  bool      `json:"is_exoplanet"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// Metrics is the subset of classifier metrics the service reports to
type Metrics interface {
	metrics.Recorder
	RecordVerdict(dataset string, isExoplanet bool, confidence float64)
	SetModelLoaded(dataset, backend string, loaded bool)
}

// Model load states
const (
	statePending int32 = iota
	stateLoaded
	stateFailed
)

// ModelStatus describes one dataset's model for health reporting
type ModelStatus struct {
	Dataset string `json:"dataset"`
	Backend string `json:"backend"`
	Version string `json:"version"`
	State   string `json:"state"` // pending, loaded or failed
}

type modelSlot struct {
	dataset     string
	title       string
	model       conf.ModelSettings
	features    []string
	searchPaths []string

	once   sync.Once
	state  atomic.Int32
	scorer Scorer
	err    error
}

// Service scores vectors with a lazily loaded model per dataset. Each model
// is loaded at most once; a failed load is remembered and not retried.
type Service struct {
	slots   map[string]*modelSlot
	metrics Metrics
	log     logger.Logger
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithMetrics reports to m
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithScorer installs a ready scorer for dataset, bypassing artifact loading
func WithScorer(dataset string, scorer Scorer) Option {
	return func(s *Service) {
		slot, ok := s.slots[dataset]
		if !ok {
			return
		}
		slot.once.Do(func() {
			slot.scorer = scorer
			slot.state.Store(stateLoaded)
		})
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService prepares a model slot for every enabled dataset. Nothing is
// loaded until the first prediction.
func NewService(settings *conf.Settings, opts ...Option) *Service {
	s := &Service{
		slots: make(map[string]*modelSlot),
		log:   logger.Global().Module("classifier"),
		now:   time.Now,
	}

	for _, name := range settings.EnabledDatasets() {
		ds := settings.Datasets[name]
		title := ds.Title
		if title == "" {
			title = name
		}
		s.slots[name] = &modelSlot{
			dataset:     name,
			title:       title,
			model:       ds.Model,
			features:    slices.Clone(ds.Features),
			searchPaths: slices.Clone(ds.SearchPaths),
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict scores vec for identifier in dataset.
func (s *Service) Predict(ctx context.Context, dataset, identifier string, vec features.Vector) (Result, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Result{}, errors.New(err).
			Component("classifier").
			Category(errors.CategoryCancellation).
			Build()
	}

	slot, ok := s.slots[dataset]
	if !ok {
		return Result{}, errors.UnsupportedDataset(dataset)
	}

	scorer, err := s.load(slot)
	if err != nil {
		s.recordError(metrics.OpPredict, err)
		return Result{}, err
	}

	if want := scorer.InputSize(); want > 0 && len(vec) != want {
		err := errors.FeatureMismatch(fmt.Sprintf("%s model expects %d features, got %d", slot.title, want, len(vec)))
		s.recordError(metrics.OpPredict, err)
		return Result{}, err
	}

	probs, err := scorer.Score(vec)
	if err != nil {
		err = errors.New(err).
			Component("classifier").
			Category(errors.CategoryProcessing).
			DatasetContext(dataset, identifier).
			Context("operation", metrics.OpModelInvoke).
			Build()
		s.recordError(metrics.OpPredict, err)
		return Result{}, err
	}

	isExoplanet, confidence := decide(probs)
	result := Result{
		Identifier:   identifier,
		Dataset:      dataset,
		Confidence:   confidence,
		IsExoplanet:  isExoplanet,
		ModelVersion: slot.version(scorer),
		CreatedAt:    s.now().UTC(),
	}

	if s.metrics != nil {
		s.metrics.RecordOperation(metrics.OpPredict, metrics.StatusSuccess)
		s.metrics.RecordDuration(metrics.OpPredict, time.Since(start).Seconds())
		s.metrics.RecordVerdict(dataset, isExoplanet, confidence)
	}

	s.log.Debug("prediction completed",
		logger.String("dataset", dataset),
		logger.String("identifier", identifier),
		logger.Bool("is_exoplanet", isExoplanet),
		logger.Float64("confidence", confidence))

	return result, nil
}

func (s *Service) load(slot *modelSlot) (Scorer, error) {
	slot.once.Do(func() {
		start := time.Now()
		slot.scorer, slot.err = slot.open()

		loaded := slot.err == nil
		if loaded {
			slot.state.Store(stateLoaded)
			s.log.Info("model loaded",
				logger.String("dataset", slot.dataset),
				logger.String("backend", slot.model.Backend),
				logger.String("version", slot.version(slot.scorer)),
				logger.Duration("elapsed", time.Since(start)))
		} else {
			slot.err = errors.ModelUnavailable(slot.err, slot.dataset)
			slot.state.Store(stateFailed)
			s.log.Error("model unavailable",
				logger.String("dataset", slot.dataset),
				logger.String("backend", slot.model.Backend),
				logger.Error(slot.err))
		}

		if s.metrics != nil {
			status := metrics.StatusSuccess
			if !loaded {
				status = metrics.StatusError
			}
			s.metrics.RecordOperation(metrics.OpModelLoad, status)
			s.metrics.RecordDuration(metrics.OpModelLoad, time.Since(start).Seconds())
			s.metrics.SetModelLoaded(slot.dataset, slot.model.Backend, loaded)
		}
	})
	return slot.scorer, slot.err
}

func (slot *modelSlot) open() (Scorer, error) {
	switch slot.model.Backend {
	case conf.BackendPlaceholder:
		return NewPlaceholder(slot.title + "-Placeholder-0.0.0"), nil

	case conf.BackendLogistic:
		path, ok := conf.ResolvePath(slot.model.Path, slot.searchPaths)
		if !ok {
			return nil, fmt.Errorf("model artifact %s not found", slot.model.Path)
		}
		scorer, err := LoadLogistic(path)
		if err != nil {
			return nil, err
		}
		if cols := scorer.Features(); len(cols) > 0 && !slices.Equal(cols, slot.features) {
			return nil, errors.FeatureMismatch(
				fmt.Sprintf("%s artifact was fitted on different feature columns", slot.title))
		}
		return scorer, nil

	case conf.BackendTFLite:
		path, ok := conf.ResolvePath(slot.model.Path, slot.searchPaths)
		if !ok {
			return nil, fmt.Errorf("model artifact %s not found", slot.model.Path)
		}
		return LoadTFLite(path, slot.model.Threads)

	default:
		return nil, fmt.Errorf("unknown model backend %q", slot.model.Backend)
	}
}

// version resolves the tag reported with predictions: configured override,
// then the artifact's own tag, then the default.
func (slot *modelSlot) version(scorer Scorer) string {
	if slot.model.Version != "" {
		return slot.model.Version
	}
	if scorer != nil {
		if v := scorer.Version(); v != "" {
			return v
		}
	}
	return DefaultVersion(slot.title)
}

// DefaultVersion is the model tag used when nothing more specific is known
func DefaultVersion(title string) string {
	return title + "-Pre-trained-1.0.0"
}

func (s *Service) recordError(operation string, err error) {
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, metrics.StatusError)
		s.metrics.RecordError(operation, string(errors.CategoryOf(err)))
	}
}

// Models reports each dataset's model state without triggering a load
func (s *Service) Models() []ModelStatus {
	out := make([]ModelStatus, 0, len(s.slots))
	for name, slot := range s.slots {
		status := ModelStatus{Dataset: name, Backend: slot.model.Backend}
		switch slot.state.Load() {
		case stateLoaded:
			status.State = "loaded"
			status.Version = slot.version(slot.scorer)
		case stateFailed:
			status.State = "failed"
		default:
			status.State = "pending"
		}
		out = append(out, status)
	}
	slices.SortFunc(out, func(a, b ModelStatus) int {
		switch {
		case a.Dataset < b.Dataset:
			return -1
		case a.Dataset > b.Dataset:
			return 1
		}
		return 0
	})
	return out
}

// Close releases every loaded model
func (s *Service) Close() error {
	var errs []error
	for _, slot := range s.slots {
		if slot.state.Load() == stateLoaded && slot.scorer != nil {
			if err := slot.scorer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
