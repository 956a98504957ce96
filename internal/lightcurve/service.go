package lightcurve

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// DefaultDataset is assumed when a request names none
const DefaultDataset = "kepler"

var (
	filenamePattern   = regexp.MustCompile(`^lightcurve_(\d+)\.png$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z]*0*(\d+)`)
)

// KeyResolver maps a candidate identifier to its survey ID
type KeyResolver interface {
	SecondaryKey(dataset, identifier string) (int64, bool)
}

// Artifact is a stored or freshly generated light curve
type Artifact struct {
	Identifier   string
	SecondaryKey int64
	Filename     string
	Image        []byte
	Synthetic    bool
	Cached       bool // true when served from an earlier generation
	CreatedAt    time.Time
}

func artifactFrom(lc *datastore.Lightcurve, cached bool) *Artifact {
	return &Artifact{
		Identifier:   lc.CandidateID,
		SecondaryKey: lc.SecondaryKey,
		Filename:     lc.Filename,
		Image:        lc.Image,
		Synthetic:    lc.Synthetic,
		Cached:       cached,
		CreatedAt:    lc.CreatedAt,
	}
}

// Service generates light curves once per identifier and serves them from
// the store afterwards.
type Service struct {
	settings *conf.Settings
	pipeline *Pipeline
	store    datastore.Interface
	keys     KeyResolver
	memo     *gocache.Cache
	group    singleflight.Group
	metrics  *metrics.LightcurveMetrics
	log      logger.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithServiceMetrics reports cache hits to m
func WithServiceMetrics(m *metrics.LightcurveMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithKeyResolver looks survey IDs up in r before deriving them
func WithKeyResolver(r KeyResolver) ServiceOption {
	return func(s *Service) { s.keys = r }
}

// NewService wires a pipeline to a store
func NewService(settings *conf.Settings, pipeline *Pipeline, store datastore.Interface, opts ...ServiceOption) *Service {
	ttl := settings.Lightcurve.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &Service{
		settings: settings,
		pipeline: pipeline,
		store:    store,
		memo:     gocache.New(ttl, 2*ttl),
		log:      logger.Global().Module("lightcurve"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeriveKey extracts the numeric part of an identifier, K00752.01 -> 752
func DeriveKey(identifier string) (int64, bool) {
	m := identifierPattern.FindStringSubmatch(strings.TrimSpace(identifier))
	if m == nil {
		return 0, false
	}
	key, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || key <= 0 {
		return 0, false
	}
	return key, true
}

// ResolveTarget builds the archive target for identifier in dataset. The
// survey ID comes from the dataset when known, from the identifier pattern
// otherwise, and from the configured default as a last resort.
func (s *Service) ResolveTarget(dataset, identifier string) (Target, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, ok := s.settings.Dataset(dataset)
	if !ok {
		return Target{}, errors.UnsupportedDataset(dataset)
	}

	target := Target{
		Identifier: identifier,
		Dataset:    dataset,
		Prefix:     ds.Lightcurve.Prefix,
		Author:     ds.Lightcurve.Author,
	}

	if s.keys != nil {
		if key, ok := s.keys.SecondaryKey(dataset, identifier); ok && key > 0 {
			target.Key = key
			return target, nil
		}
	}
	if key, ok := DeriveKey(identifier); ok {
		target.Key = key
		return target, nil
	}
	target.Key = s.settings.Lightcurve.DefaultKey
	return target, nil
}

// GenerateOrFetch returns the stored light curve for identifier, generating
// and storing one first when none exists. Concurrent calls for the same
// identifier share a single generation.
func (s *Service) GenerateOrFetch(ctx context.Context, dataset, identifier string) (*Artifact, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.ValidationError("Identifier is required")
	}

	if artifact, err := s.stored(ctx, identifier); artifact != nil || err != nil {
		return artifact, err
	}

	target, err := s.ResolveTarget(dataset, identifier)
	if err != nil {
		return nil, err
	}

	// the shared generation must outlive any single caller
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(identifier, func() (any, error) {
		// a flight that finished after the check above has already stored one
		if artifact, err := s.stored(shared, identifier); artifact != nil || err != nil {
			return artifact, err
		}
		return s.generate(shared, target)
	})

	select {
	case <-ctx.Done():
		return nil, errors.New(ctx.Err()).
			Component("lightcurve").
			Category(errors.CategoryCancellation).
			Context("identifier", identifier).
			Build()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		artifact := *res.Val.(*Artifact)
		return &artifact, nil
	}
}

// stored returns the newest stored artifact for identifier, or nil when none
// exists.
func (s *Service) stored(ctx context.Context, identifier string) (*Artifact, error) {
	existing, err := s.store.GetLightcurveByIdentifier(ctx, identifier)
	switch {
	case err == nil:
		s.recordSource(metrics.SourceExisting)
		artifact := artifactFrom(existing, true)
		s.memo.SetDefault(memoKey(artifact.Identifier), artifact)
		return artifact, nil
	case errors.IsNotFound(err):
		return nil, nil
	default:
		return nil, err
	}
}

func (s *Service) generate(ctx context.Context, target Target) (*Artifact, error) {
	result, err := s.pipeline.Generate(ctx, target)
	if err != nil {
		return nil, err
	}

	switch r := result.(type) {
	case Failed:
		return nil, errors.Newf("%s", r.Reason).
			Component("lightcurve").
			Category(errors.CategoryRendering).
			Context("target", target.Name()).
			Build()

	case Rendered:
		lc := &datastore.Lightcurve{
			CandidateID:  target.Identifier,
			SecondaryKey: r.SecondaryKey,
			Image:        r.Image,
			Filename:     r.Filename,
			Synthetic:    !r.Real,
		}
		if err := s.store.SaveLightcurve(ctx, lc); err != nil {
			return nil, err
		}
		artifact := artifactFrom(lc, false)
		s.remember(artifact)
		s.log.Info("light curve stored",
			logger.String("identifier", target.Identifier),
			logger.Int64("secondary_key", r.SecondaryKey),
			logger.Bool("synthetic", !r.Real))
		return artifact, nil

	default:
		return nil, errors.Newf("unexpected pipeline result %T", result).
			Component("lightcurve").
			Category(errors.CategoryGeneric).
			Build()
	}
}

// Image serves a stored light curve by identifier, by numeric survey ID or
// by its lightcurve_{key}.png filename.
func (s *Service) Image(ctx context.Context, ref string) (*Artifact, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NotFound("Lightcurve not found")
	}

	if cached, ok := s.memo.Get(memoKey(ref)); ok {
		s.recordSource(metrics.SourceCache)
		return cached.(*Artifact), nil
	}

	var (
		lc  *datastore.Lightcurve
		err error
	)
	if m := filenamePattern.FindStringSubmatch(ref); m != nil {
		key, _ := strconv.ParseInt(m[1], 10, 64)
		lc, err = s.store.GetLightcurveBySecondaryKey(ctx, key)
	} else {
		lc, err = s.store.GetLightcurveByIdentifier(ctx, ref)
		if errors.IsNotFound(err) {
			if key, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
				lc, err = s.store.GetLightcurveBySecondaryKey(ctx, key)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	artifact := artifactFrom(lc, true)
	s.memo.SetDefault(memoKey(ref), artifact)
	s.recordSource(metrics.SourceExisting)
	return artifact, nil
}

// remember memoizes a freshly stored artifact under every name it can be
// fetched by. Only the newest row for a survey ID may take the key and
// filename entries, so older artifacts are memoized by identifier alone.
func (s *Service) remember(a *Artifact) {
	s.memo.SetDefault(memoKey(a.Identifier), a)
	s.memo.SetDefault(memoKey(strconv.FormatInt(a.SecondaryKey, 10)), a)
	s.memo.SetDefault(memoKey(a.Filename), a)
}

func memoKey(ref string) string { return "lc:" + ref }

func (s *Service) recordSource(source string) {
	if s.metrics != nil {
		s.metrics.RecordImage(source)
	}
}

// Flush drops every memoized image
func (s *Service) Flush() {
	s.memo.Flush()
}
