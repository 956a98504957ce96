package errors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu     sync.Mutex
	errors []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuildReportsWhenReporterInstalled(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("lookup failed for %s", "K00752.01").
		Component("dataset").
		Category(CategoryNotFound).
		Context("identifier", "K00752.01").
		Build()

	require.Len(t, reporter.errors, 1)
	assert.Same(t, ee, reporter.errors[0])
	assert.True(t, ee.IsReported())
	assert.Equal(t, "dataset", ee.GetComponent())
	assert.Equal(t, "K00752.01", ee.GetContext()["identifier"])
}

func TestIsMatchesCategory(t *testing.T) {
	SetTelemetryReporter(nil)

	err := fmt.Errorf("wrapped: %w", NotFound("no such candidate"))

	assert.True(t, Is(err, &EnhancedError{Category: CategoryNotFound}))
	assert.False(t, Is(err, &EnhancedError{Category: CategoryValidation}))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, CategoryNotFound, CategoryOf(err))
}

func TestDetectCategoryHeuristics(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"deadline", context.DeadlineExceeded, "", CategoryTimeout},
		{"canceled", context.Canceled, "", CategoryCancellation},
		{"missing file", fmt.Errorf("open x.csv: no such file or directory"), "", CategoryFileIO},
		{"dial", fmt.Errorf("dial tcp: connection refused"), "", CategoryNetwork},
		{"datastore fallback", fmt.Errorf("disk I/O"), "datastore", CategoryDatabase},
		{"nested category wins", fmt.Errorf("outer: %w", FeatureMismatch("column gone")), "", CategoryFeatureMismatch},
		{"generic", fmt.Errorf("boom"), "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	SetTelemetryReporter(nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", ValidationError("KOI name is required"), http.StatusBadRequest},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"unsupported dataset", UnsupportedDataset("k2"), http.StatusBadRequest},
		{"model unavailable", ModelUnavailable(fmt.Errorf("corrupt"), "kepler"), http.StatusInternalServerError},
		{"timeout", Timeout(context.DeadlineExceeded, "lightcurve_generate"), http.StatusRequestTimeout},
		{"store", StoreError(fmt.Errorf("locked"), "save_prediction"), http.StatusInternalServerError},
		{"plain error", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestTaxonomyBuildersKeepCategory(t *testing.T) {
	timeout := NewTimeout(context.DeadlineExceeded, "lightcurve_generate").
		Component("lightcurve").
		Context("target", "KIC 10797460").
		Build()
	assert.Equal(t, string(CategoryTimeout), timeout.GetCategory())
	assert.Equal(t, "lightcurve", timeout.GetComponent())
	assert.Equal(t, "lightcurve_generate", timeout.GetContext()["operation"])
	assert.Equal(t, http.StatusRequestTimeout, HTTPStatus(timeout))

	store := NewStoreError(fmt.Errorf("disk full"), "save_lightcurve").
		Component("datastore").
		Build()
	assert.Equal(t, string(CategoryDatabase), store.GetCategory())
	assert.Equal(t, "save_lightcurve", store.GetContext()["operation"])
}

func TestBasicURLScrub(t *testing.T) {
	scrubbed := basicURLScrub("Error at https://archive.example.com?api_key=secret123&token=abc")
	assert.Equal(t, "Error at https://archive.example.com?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("Config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")

	scrubbed = basicURLScrub("dial failed for exo:hunter2@tcp(db:3306)/exo")
	assert.False(t, strings.Contains(scrubbed, "hunter2"), scrubbed)
}

func TestGenerateErrorTitle(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("x")).
		Component("lightcurve").
		Category(CategoryTimeout).
		Context("operation", "lightcurve_generate").
		Build()

	assert.Equal(t, "Lightcurve Timeout Lightcurve Generate", generateErrorTitle(ee))
}
