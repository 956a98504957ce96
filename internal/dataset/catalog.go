package dataset

import (
	"context"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// StatusAvailable is reported by Info for a usable dataset
const StatusAvailable = "available"

// LoadRecorder receives dataset load and lookup measurements
type LoadRecorder interface {
	RecordLoad(dataset string, rows, options int, seconds float64)
	RecordLookup(dataset string, found bool)
}

// Entry is one configured dataset with whatever could be loaded for it.
type Entry struct {
	Spec        Spec
	Index       *Index       // nil when the table could not be loaded
	Suggestions *Suggestions // nil when the options file could not be loaded
	IndexErr    error
	OptionsErr  error
}

// Loaded reports whether the table is available for lookups
func (e *Entry) Loaded() bool { return e.Index != nil }

// Info summarizes a dataset for the datasets endpoint
type Info struct {
	Name          string   `json:"name"`
	OptionsCount  int      `json:"options_count"`
	SampleOptions []string `json:"sample_options"`
	Status        string   `json:"status"`
}

// Catalog is the registry of datasets, built once and read-only afterwards.
type Catalog struct {
	entries map[string]*Entry
	names   []string
	metrics LoadRecorder
	log     logger.Logger
}

// CatalogOption configures a Catalog
type CatalogOption func(*Catalog)

// WithRecorder reports load and lookup metrics
func WithRecorder(r LoadRecorder) CatalogOption {
	return func(c *Catalog) { c.metrics = r }
}

// WithLogger overrides the module logger
func WithLogger(l logger.Logger) CatalogOption {
	return func(c *Catalog) { c.log = l }
}

// NewCatalog loads every enabled dataset concurrently. Datasets whose files
// are missing are kept as unavailable entries; only ctx cancellation fails
// the whole load.
func NewCatalog(ctx context.Context, settings *conf.Settings, opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]*Entry),
		log:     logger.Global().Module("dataset"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.names = settings.EnabledDatasets()
	for _, name := range c.names {
		ds := settings.Datasets[name]
		c.entries[name] = &Entry{Spec: SpecFromSettings(name, &ds)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, name := range c.names {
		entry := c.entries[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.loadEntry(entry)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryCancellation).
			Context("operation", "load_catalog").
			Build()
	}

	return c, nil
}

// NewCatalogFromEntries builds a catalog from already loaded entries
func NewCatalogFromEntries(entries ...*Entry) *Catalog {
	c := &Catalog{
		entries: make(map[string]*Entry, len(entries)),
		log:     logger.Global().Module("dataset"),
	}
	for _, e := range entries {
		c.entries[e.Spec.Name] = e
		c.names = append(c.names, e.Spec.Name)
	}
	slices.Sort(c.names)
	return c
}

func (c *Catalog) loadEntry(entry *Entry) {
	start := time.Now()
	spec := entry.Spec

	entry.Index, entry.IndexErr = Load(spec)
	if entry.IndexErr != nil {
		c.log.Warn("dataset unavailable",
			logger.String("dataset", spec.Name),
			logger.String("file", spec.CSVFile),
			logger.Error(entry.IndexErr))
	}

	if path, ok := conf.ResolvePath(spec.OptionsFile, spec.SearchPaths); ok {
		entry.Suggestions, entry.OptionsErr = LoadSuggestions(path)
	} else {
		entry.OptionsErr = errors.Newf("%s options file not found", spec.Name).
			Component("dataset").
			Category(errors.CategoryNotFound).
			Context("dataset", spec.Name).
			Build()
	}
	if entry.OptionsErr != nil {
		c.log.Warn("autocomplete list unavailable",
			logger.String("dataset", spec.Name),
			logger.Error(entry.OptionsErr))
	}

	rows, options := 0, 0
	if entry.Index != nil {
		rows = entry.Index.Len()
	}
	if entry.Suggestions != nil {
		options = entry.Suggestions.Len()
	}

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordLoad(spec.Name, rows, options, elapsed.Seconds())
	}
	c.log.Info("dataset loaded",
		logger.String("dataset", spec.Name),
		logger.Int("rows", rows),
		logger.Int("options", options),
		logger.Duration("elapsed", elapsed))
}

// Names returns the configured dataset names, sorted
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Entry returns the named entry or an unsupported-dataset error
func (c *Catalog) Entry(name string) (*Entry, error) {
	entry, ok := c.entries[name]
	if !ok {
		return nil, errors.UnsupportedDataset(name)
	}
	return entry, nil
}

// Dataset returns the loaded index for name. Unknown names are unsupported;
// known but unloaded datasets fail with a not-found error.
func (c *Catalog) Dataset(name string) (*Index, error) {
	entry, err := c.Entry(name)
	if err != nil {
		return nil, err
	}
	if entry.Index == nil {
		return nil, errors.Newf("%s dataset not found", entry.Spec.Title).
			Component("dataset").
			Category(errors.CategoryNotFound).
			Context("dataset", name).
			Build()
	}
	return entry.Index, nil
}

// Lookup resolves identifier within the named dataset
func (c *Catalog) Lookup(name, identifier string) (Row, error) {
	idx, err := c.Dataset(name)
	if err != nil {
		return Row{}, err
	}
	row, err := idx.Lookup(identifier)
	if c.metrics != nil {
		c.metrics.RecordLookup(name, err == nil)
	}
	return row, err
}

// Suggestions returns the autocomplete list for name. A missing list is a
// validation failure, matching how the endpoint reports it.
func (c *Catalog) Suggestions(name string) (*Suggestions, error) {
	entry, err := c.Entry(name)
	if err != nil {
		return nil, err
	}
	if entry.Suggestions == nil {
		return nil, errors.ValidationError(name + " options file not found")
	}
	return entry.Suggestions, nil
}

// Info summarizes one dataset
func (c *Catalog) Info(name string) (Info, error) {
	entry, err := c.Entry(name)
	if err != nil {
		return Info{}, err
	}
	if !entry.Loaded() {
		return Info{}, errors.ValidationError(name + " dataset not available")
	}
	suggestions, err := c.Suggestions(name)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:          name,
		OptionsCount:  suggestions.Len(),
		SampleOptions: suggestions.Sample(5),
		Status:        StatusAvailable,
	}, nil
}

// Status reports whether each dataset's table is loaded
func (c *Catalog) Status() map[string]bool {
	out := make(map[string]bool, len(c.entries))
	for name, entry := range c.entries {
		out[name] = entry.Loaded()
	}
	return out
}

// SecondaryKey resolves the numeric survey ID of identifier in the named dataset
func (c *Catalog) SecondaryKey(name, identifier string) (int64, bool) {
	idx, err := c.Dataset(name)
	if err != nil {
		return 0, false
	}
	return idx.SecondaryKey(identifier)
}
