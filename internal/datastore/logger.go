package datastore

import (
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/exoplanet-go/internal/logger"
)

// DefaultSlowQueryThreshold is used when the configuration leaves it unset
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// getLogger returns the datastore module logger
func getLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// createGormLogger routes GORM output through the structured logger
func createGormLogger(log logger.Logger, slowThreshold time.Duration) gormlogger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}
	return logger.NewGormLoggerAdapter(log, slowThreshold)
}
