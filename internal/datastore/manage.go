package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// tableMappings lists every migrated model
var tableMappings = []struct {
	model any
	name  string
}{
	{&Prediction{}, "predictions"},
	{&Lightcurve{}, "lightcurves"},
}

// performAutoMigration creates or updates all tables. Running it against an
// up to date schema changes nothing.
func (ds *DataStore) performAutoMigration(dbType string) error {
	migrationStart := time.Now()
	migrationLogger := ds.log.With(logger.String("db_type", dbType))

	migrationLogger.Debug("starting database migration",
		logger.Int("table_count", len(tableMappings)))

	for _, table := range tableMappings {
		if err := migrateTable(ds.DB, table.model, table.name, dbType, migrationLogger); err != nil {
			ds.observe(metrics.OpDbMigrate, migrationStart, err)
			return err
		}
	}

	ds.observe(metrics.OpDbMigrate, migrationStart, nil)
	ds.refreshRowMetrics()

	migrationLogger.Debug("database migration completed",
		logger.Duration("total_duration", time.Since(migrationStart)))
	return nil
}

func migrateTable(db *gorm.DB, model any, tableName, dbType string, log logger.Logger) error {
	start := time.Now()
	existed := db.Migrator().HasTable(model)

	if err := db.AutoMigrate(model); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Context("table", tableName).
			Build()
	}

	log.Debug("table migrated",
		logger.String("table", tableName),
		logger.Bool("existed", existed),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// refreshRowMetrics publishes current table sizes and pool usage
func (ds *DataStore) refreshRowMetrics() {
	if ds.metrics == nil || ds.DB == nil {
		return
	}
	for _, table := range tableMappings {
		var count int64
		if err := ds.DB.Model(table.model).Count(&count).Error; err == nil {
			ds.metrics.SetTableRows(table.name, count)
		}
	}
	if sqlDB, err := ds.DB.DB(); err == nil {
		ds.metrics.SetOpenConnections(sqlDB.Stats().OpenConnections)
	}
}
