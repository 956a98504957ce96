package datastore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

func newTestStore(t *testing.T, opts ...Option) Interface {
	t.Helper()
	settings := conf.NewTestSettings().
		WithSQLite(filepath.Join(t.TempDir(), "db", "predictions.db")).
		Build()

	opts = append([]Option{WithLogger(logger.NewDiscardLogger())}, opts...)
	store, err := New(settings, opts...)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id, dataset string, ts time.Time, confidence float64, planet bool) *PredictionRecord {
	return &PredictionRecord{
		ExoplanetID: id,
		Dataset:     dataset,
		Timestamp:   ts.Format(time.RFC3339),
		Prediction: &PredictionDetail{
			Confidence:   confidence,
			IsExoplanet:  planet,
			ModelVersion: "Kepler-Pre-trained-1.0.0",
		},
	}
}

func TestNewRequiresBackend(t *testing.T) {
	t.Parallel()
	settings := conf.NewTestSettings().Build()
	settings.Datastore.SQLite.Enabled = false
	settings.Datastore.MySQL.Enabled = false

	_, err := New(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSavePredictionValidation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	now := time.Now()

	tests := []struct {
		name    string
		record  *PredictionRecord
		message string
	}{
		{"nil", nil, "No data provided"},
		{"empty", &PredictionRecord{}, "Missing required field: exoplanet_id"},
		{"no dataset", &PredictionRecord{ExoplanetID: "K1"}, "Missing required field: dataset"},
		{"no prediction", &PredictionRecord{ExoplanetID: "K1", Dataset: "kepler", Timestamp: "2024-01-01"}, "Missing required field: prediction"},
		{"no timestamp", &PredictionRecord{ExoplanetID: "K1", Dataset: "kepler", Prediction: &PredictionDetail{}}, "Missing required field: timestamp"},
		{"bad timestamp", &PredictionRecord{ExoplanetID: "K1", Dataset: "kepler", Prediction: &PredictionDetail{}, Timestamp: "yesterday"}, "Invalid timestamp"},
		{"bad confidence", record("K1", "kepler", now, 1.5, true), "Confidence must be between 0 and 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SavePrediction(t.Context(), tt.record)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
			assert.Equal(t, tt.message, err.Error())
		})
	}

	rows, err := store.ListPredictions(t.Context())
	require.NoError(t, err)
	assert.Empty(t, rows, "failed validation must not write")
}

func TestPredictionsRoundTripNewestFirst(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.SavePrediction(t.Context(), record("K00752.01", "kepler", base, 0.91, true))
	require.NoError(t, err)
	_, err = store.SavePrediction(t.Context(), record("1000.01", "tess", base.Add(2*time.Hour), 0.6, false))
	require.NoError(t, err)
	saved, err := store.SavePrediction(t.Context(), record("K00752.02", "kepler", base.Add(time.Hour), 0.7, true))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	rows, err := store.ListPredictions(t.Context())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1000.01", "K00752.02", "K00752.01"},
		[]string{rows[0].CandidateID, rows[1].CandidateID, rows[2].CandidateID})

	rec := rows[2].Record()
	assert.Equal(t, "K00752.01", rec.ExoplanetID)
	assert.Equal(t, "kepler", rec.Dataset)
	assert.Equal(t, "2024-03-01T10:00:00Z", rec.Timestamp)
	require.NotNil(t, rec.Prediction)
	assert.InDelta(t, 0.91, rec.Prediction.Confidence, 1e-9)
	assert.True(t, rec.Prediction.IsExoplanet)

	kepler, err := store.ListPredictionsByDataset(t.Context(), "kepler")
	require.NoError(t, err)
	assert.Len(t, kepler, 2)
}

func TestPredictionStats(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	empty, err := store.PredictionStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, &PredictionStats{DatasetBreakdown: map[string]int64{}}, empty)

	now := time.Now()
	for _, r := range []*PredictionRecord{
		record("a", "kepler", now, 0.9, true),
		record("b", "kepler", now, 0.8, false),
		record("c", "tess", now, 0.555, true),
	} {
		_, err := store.SavePrediction(t.Context(), r)
		require.NoError(t, err)
	}

	stats, err := store.PredictionStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalPredictions)
	assert.Equal(t, int64(2), stats.ExoplanetsFound)
	assert.InDelta(t, 0.75, stats.AverageConfidence, 1e-9)
	assert.InDelta(t, 66.67, stats.SuccessRate, 1e-9)
	assert.Equal(t, map[string]int64{"kepler": 2, "tess": 1}, stats.DatasetBreakdown)
}

func TestClearPredictions(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for i := range 4 {
		_, err := store.SavePrediction(t.Context(), record(fmt.Sprintf("K%d", i), "kepler", time.Now(), 0.7, true))
		require.NoError(t, err)
	}

	removed, err := store.ClearPredictions(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	rows, err := store.ListPredictions(t.Context())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLightcurveLatestWins(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	exists, err := store.LightcurveExists(ctx, "K00752.01")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.GetLightcurveByIdentifier(ctx, "K00752.01")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	first := &Lightcurve{CandidateID: "K00752.01", SecondaryKey: 752, Image: []byte("first"), Filename: "lightcurve_752.png", Synthetic: true}
	require.NoError(t, store.SaveLightcurve(ctx, first))
	second := &Lightcurve{CandidateID: "K00752.01", SecondaryKey: 752, Image: []byte("second"), Filename: "lightcurve_752.png"}
	require.NoError(t, store.SaveLightcurve(ctx, second))
	assert.NotEqual(t, first.ID, second.ID, "saving never overwrites")

	exists, err = store.LightcurveExists(ctx, "K00752.01")
	require.NoError(t, err)
	assert.True(t, exists)

	byID, err := store.GetLightcurveByIdentifier(ctx, "K00752.01")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), byID.Image)
	assert.False(t, byID.Synthetic)

	byKey, err := store.GetLightcurveBySecondaryKey(ctx, 752)
	require.NoError(t, err)
	assert.Equal(t, second.ID, byKey.ID)

	_, err = store.GetLightcurveBySecondaryKey(ctx, 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveLightcurveValidation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	err := store.SaveLightcurve(t.Context(), &Lightcurve{Image: []byte("x")})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	err = store.SaveLightcurve(t.Context(), &Lightcurve{CandidateID: "K1"})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "predictions.db")
	settings := conf.NewTestSettings().WithSQLite(path).Build()

	store, err := New(settings, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	_, err = store.SavePrediction(t.Context(), record("K1", "kepler", time.Now(), 0.8, true))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(settings, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	require.NoError(t, reopened.Open())
	t.Cleanup(func() { _ = reopened.Close() })

	rows, err := reopened.ListPredictions(t.Context())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestConcurrentWritesSerialize(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Go(func() {
			_, err := store.SavePrediction(t.Context(), record(fmt.Sprintf("K%d", i), "kepler", time.Now(), 0.6, false))
			assert.NoError(t, err)
			assert.NoError(t, store.SaveLightcurve(t.Context(), &Lightcurve{
				CandidateID: fmt.Sprintf("K%d", i), Image: []byte{1}, Filename: "x.png",
			}))
		})
	}
	wg.Wait()

	stats, err := store.PredictionStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(writers), stats.TotalPredictions)
}

func TestStoreMetrics(t *testing.T) {
	t.Parallel()
	m, err := metrics.NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	store := newTestStore(t, WithMetrics(m))
	_, err = store.SavePrediction(t.Context(), record("K1", "kepler", time.Now(), 0.8, true))
	require.NoError(t, err)
	_, err = store.PredictionStats(t.Context())
	require.NoError(t, err)

	assert.Positive(t, testutil.CollectAndCount(m, "datastore_operations_total"))
}

func TestUseAfterClose(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.ListPredictions(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-01T12:00:00+02:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-01T10:00:00.123456", time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC), true},
		{"2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"not a time", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()
	settings := conf.NewTestSettings().Build()
	settings.Datastore.MySQL.Username = "exo"
	settings.Datastore.MySQL.Password = "p@ss:word/"
	settings.Datastore.MySQL.Host = "db.internal"
	settings.Datastore.MySQL.Port = "3307"
	settings.Datastore.MySQL.Database = "exoplanet"

	dsn := mysqlDSN(settings)
	assert.Contains(t, dsn, "exo:p@ss:word/@tcp(db.internal:3307)/exoplanet")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	dsn := sqliteDSN("data/predictions.db")
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}
