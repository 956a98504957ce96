package lightcurve

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/httpclient"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// Segment is one observation block as returned by the archive
type Segment struct {
	Time    []float64 `json:"time"`
	Flux    []float64 `json:"flux"`
	FluxErr []float64 `json:"flux_err,omitempty"`
}

// Fetcher retrieves raw observation segments for a target
type Fetcher interface {
	Fetch(ctx context.Context, target Target, limit int) ([]Segment, error)
}

type archiveResponse struct {
	Segments []Segment `json:"segments"`
}

// ArchiveFetcher queries a light-curve archive over HTTP:
//
//	GET {base}?target=KIC+752&author=Kepler&limit=3
//
// and expects {"segments":[{"time":[...],"flux":[...],"flux_err":[...]}]}.
type ArchiveFetcher struct {
	client  *httpclient.Client
	baseURL string
	metrics metrics.Recorder
}

// NewArchiveFetcher creates a fetcher for baseURL. A nil client gets the
// package defaults.
func NewArchiveFetcher(baseURL string, client *httpclient.Client, recorder metrics.Recorder) (*ArchiveFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid archive URL %q", baseURL).
			Component("lightcurve").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if client == nil {
		client = httpclient.New(nil)
	}
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &ArchiveFetcher{client: client, baseURL: baseURL, metrics: recorder}, nil
}

// Fetch returns at most limit segments for target
func (f *ArchiveFetcher) Fetch(ctx context.Context, target Target, limit int) ([]Segment, error) {
	start := time.Now()

	u, _ := url.Parse(f.baseURL)
	q := u.Query()
	q.Set("target", target.Name())
	if target.Author != "" {
		q.Set("author", target.Author)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	var resp archiveResponse
	err := f.client.GetJSON(ctx, u.String(), &resp)

	f.metrics.RecordDuration(metrics.OpArchiveFetch, time.Since(start).Seconds())
	if err != nil {
		f.metrics.RecordOperation(metrics.OpArchiveFetch, metrics.StatusError)
		f.metrics.RecordError(metrics.OpArchiveFetch, string(errors.CategoryOf(err)))
		return nil, fmt.Errorf("archive fetch for %s: %w", target.Name(), err)
	}
	f.metrics.RecordOperation(metrics.OpArchiveFetch, metrics.StatusSuccess)

	segments := resp.Segments
	if limit > 0 && len(segments) > limit {
		segments = segments[:limit]
	}
	return segments, nil
}
