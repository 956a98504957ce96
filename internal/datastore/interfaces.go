// Package datastore persists predictions and rendered light curves through
// GORM, backed by SQLite or MySQL.
package datastore

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	SavePrediction(ctx context.Context, record *PredictionRecord) (*Prediction, error)
	ListPredictions(ctx context.Context) ([]Prediction, error)
	ListPredictionsByDataset(ctx context.Context, dataset string) ([]Prediction, error)
	PredictionStats(ctx context.Context) (*PredictionStats, error)
	ClearPredictions(ctx context.Context) (int64, error)

	LightcurveExists(ctx context.Context, identifier string) (bool, error)
	SaveLightcurve(ctx context.Context, lc *Lightcurve) error
	GetLightcurveByIdentifier(ctx context.Context, identifier string) (*Lightcurve, error)
	GetLightcurveBySecondaryKey(ctx context.Context, key int64) (*Lightcurve, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	metrics *Metrics
	log     logger.Logger
}

// Option configures a store before it is opened
type Option func(*DataStore)

// WithMetrics reports datastore operations to m
func WithMetrics(m *Metrics) Option {
	return func(ds *DataStore) { ds.metrics = m }
}

// WithLogger overrides the datastore module logger
func WithLogger(l logger.Logger) Option {
	return func(ds *DataStore) { ds.log = l }
}

// New creates the store selected by the configuration. It is not opened.
func New(settings *conf.Settings, opts ...Option) (Interface, error) {
	base := DataStore{log: getLogger()}
	for _, opt := range opts {
		opt(&base)
	}

	switch {
	case settings.Datastore.SQLite.Enabled:
		return &SQLiteStore{DataStore: base, Settings: settings}, nil
	case settings.Datastore.MySQL.Enabled:
		return &MySQLStore{DataStore: base, Settings: settings}, nil
	default:
		return nil, errors.Newf("no datastore backend enabled").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// observe records the outcome and latency of one operation
func (ds *DataStore) observe(operation string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		ds.metrics.RecordError(operation, string(errors.CategoryOf(err)))
	}
	ds.metrics.RecordOperation(operation, status)
	ds.metrics.RecordDuration(operation, time.Since(start).Seconds())
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// validateRecord checks required fields in the order clients are told about
// them and returns the parsed timestamp.
func validateRecord(record *PredictionRecord) (time.Time, error) {
	if record == nil {
		return time.Time{}, errors.ValidationError("No data provided")
	}
	if strings.TrimSpace(record.ExoplanetID) == "" {
		return time.Time{}, missingField("exoplanet_id")
	}
	if strings.TrimSpace(record.Dataset) == "" {
		return time.Time{}, missingField("dataset")
	}
	if record.Prediction == nil {
		return time.Time{}, missingField("prediction")
	}
	if strings.TrimSpace(record.Timestamp) == "" {
		return time.Time{}, missingField("timestamp")
	}

	ts, ok := ParseTimestamp(record.Timestamp)
	if !ok {
		return time.Time{}, validationError("Invalid timestamp", "timestamp", record.Timestamp)
	}
	if c := record.Prediction.Confidence; math.IsNaN(c) || c < 0 || c > 1 {
		return time.Time{}, validationError("Confidence must be between 0 and 1", "confidence", c)
	}
	return ts, nil
}

// SavePrediction validates record and inserts it. Nothing is written when
// validation fails.
func (ds *DataStore) SavePrediction(ctx context.Context, record *PredictionRecord) (*Prediction, error) {
	ts, err := validateRecord(record)
	if err != nil {
		return nil, err
	}
	if err := ds.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	row := &Prediction{
		CandidateID:  strings.TrimSpace(record.ExoplanetID),
		Dataset:      strings.TrimSpace(record.Dataset),
		Confidence:   record.Prediction.Confidence,
		IsExoplanet:  record.Prediction.IsExoplanet,
		ModelVersion: record.Prediction.ModelVersion,
		Timestamp:    ts,
	}

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		err = dbError(err, "save_prediction", "candidate_id", row.CandidateID, "dataset", row.Dataset)
	}
	ds.observe(metrics.OpDbInsert, start, err)
	if err != nil {
		return nil, err
	}

	ds.log.Info("prediction saved",
		logger.String("candidate_id", row.CandidateID),
		logger.String("dataset", row.Dataset))
	return row, nil
}

// ListPredictions returns every prediction, newest first
func (ds *DataStore) ListPredictions(ctx context.Context) ([]Prediction, error) {
	return ds.listPredictions(ctx, "")
}

// ListPredictionsByDataset returns one dataset's predictions, newest first
func (ds *DataStore) ListPredictionsByDataset(ctx context.Context, dataset string) ([]Prediction, error) {
	return ds.listPredictions(ctx, dataset)
}

func (ds *DataStore) listPredictions(ctx context.Context, dataset string) ([]Prediction, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	query := ds.DB.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if dataset != "" {
		query = query.Where("dataset = ?", dataset)
	}

	var rows []Prediction
	err := query.Find(&rows).Error
	if err != nil {
		err = dbError(err, "list_predictions", "dataset", dataset)
	}
	ds.observe(metrics.OpDbQuery, start, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PredictionStats aggregates the predictions table. Averages and rates are
// rounded to two decimals; an empty table yields zeros.
func (ds *DataStore) PredictionStats(ctx context.Context) (*PredictionStats, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	stats := &PredictionStats{DatasetBreakdown: map[string]int64{}}

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Prediction{}).Count(&stats.TotalPredictions).Error; err != nil {
			return err
		}
		if err := tx.Model(&Prediction{}).Where("is_exoplanet = ?", true).Count(&stats.ExoplanetsFound).Error; err != nil {
			return err
		}

		var avg struct{ Avg float64 }
		if err := tx.Model(&Prediction{}).Select("COALESCE(AVG(confidence), 0) AS avg").Scan(&avg).Error; err != nil {
			return err
		}
		stats.AverageConfidence = round2(avg.Avg)

		var breakdown []struct {
			Dataset string
			Count   int64
		}
		if err := tx.Model(&Prediction{}).Select("dataset, COUNT(*) AS count").Group("dataset").Scan(&breakdown).Error; err != nil {
			return err
		}
		for _, b := range breakdown {
			stats.DatasetBreakdown[b.Dataset] = b.Count
		}
		return nil
	})
	if err != nil {
		err = dbError(err, "prediction_stats")
	}
	ds.observe(metrics.OpDbQuery, start, err)
	if err != nil {
		return nil, err
	}

	if stats.TotalPredictions > 0 {
		stats.SuccessRate = round2(float64(stats.ExoplanetsFound) / float64(stats.TotalPredictions) * 100)
	}
	if ds.metrics != nil {
		ds.metrics.SetTableRows("predictions", stats.TotalPredictions)
	}
	return stats, nil
}

// ClearPredictions deletes every prediction and reports how many were removed
func (ds *DataStore) ClearPredictions(ctx context.Context) (int64, error) {
	if err := ds.ready(); err != nil {
		return 0, err
	}

	start := time.Now()
	var removed int64
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Prediction{})
		removed = result.RowsAffected
		return result.Error
	})
	if err != nil {
		err = dbError(err, "clear_predictions")
	}
	ds.observe(metrics.OpDbDelete, start, err)
	if err != nil {
		return 0, err
	}

	if ds.metrics != nil {
		ds.metrics.SetTableRows("predictions", 0)
	}
	ds.log.Info("predictions cleared", logger.Int64("removed", removed))
	return removed, nil
}

// LightcurveExists reports whether any image is stored for identifier
func (ds *DataStore) LightcurveExists(ctx context.Context, identifier string) (bool, error) {
	if err := ds.ready(); err != nil {
		return false, err
	}

	start := time.Now()
	var count int64
	err := ds.DB.WithContext(ctx).Model(&Lightcurve{}).Where("candidate_id = ?", identifier).Count(&count).Error
	if err != nil {
		err = dbError(err, "lightcurve_exists", "candidate_id", identifier)
	}
	ds.observe(metrics.OpDbQuery, start, err)
	return count > 0, err
}

// SaveLightcurve inserts a new image row. Existing rows are never replaced.
func (ds *DataStore) SaveLightcurve(ctx context.Context, lc *Lightcurve) error {
	if lc == nil || lc.CandidateID == "" {
		return missingField("candidate_id")
	}
	if len(lc.Image) == 0 {
		return missingField("image")
	}
	if err := ds.ready(); err != nil {
		return err
	}

	start := time.Now()
	lc.ID = 0
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(lc).Error
	})
	if err != nil {
		err = dbError(err, "save_lightcurve", "candidate_id", lc.CandidateID)
	}
	ds.observe(metrics.OpDbInsert, start, err)
	return err
}

// GetLightcurveByIdentifier returns the newest image for identifier
func (ds *DataStore) GetLightcurveByIdentifier(ctx context.Context, identifier string) (*Lightcurve, error) {
	return ds.latestLightcurve(ctx, "candidate_id = ?", identifier)
}

// GetLightcurveBySecondaryKey returns the newest image for a survey key
func (ds *DataStore) GetLightcurveBySecondaryKey(ctx context.Context, key int64) (*Lightcurve, error) {
	return ds.latestLightcurve(ctx, "secondary_key = ?", key)
}

func (ds *DataStore) latestLightcurve(ctx context.Context, where string, arg any) (*Lightcurve, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	var lc Lightcurve
	err := ds.DB.WithContext(ctx).
		Where(where, arg).
		Order("created_at DESC").
		Order("id DESC").
		First(&lc).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ds.observe(metrics.OpDbQuery, start, nil)
		return nil, errors.NotFound("Lightcurve not found")
	case err != nil:
		err = dbError(err, "get_lightcurve", "key", arg)
		ds.observe(metrics.OpDbQuery, start, err)
		return nil, err
	}

	ds.observe(metrics.OpDbQuery, start, nil)
	return &lc, nil
}

// Close closes the underlying connection pool
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	ds.DB = nil
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
