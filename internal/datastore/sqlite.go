package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// sqliteBusyTimeoutMs bounds how long a writer waits for the database lock
const sqliteBusyTimeoutMs = 5000

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// sqliteDSN builds the connection string. On-disk databases use WAL with
// immediate transactions so concurrent writers queue on the busy timeout
// instead of failing on lock upgrade.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate&_foreign_keys=on",
		filepath.ToSlash(path), sqliteBusyTimeoutMs)
}

// Open connects to the SQLite file and migrates the schema
func (store *SQLiteStore) Open() error {
	path := store.Settings.Datastore.SQLite.Path
	if path == "" {
		return errors.Newf("sqlite path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					FileContext(dir).
					Build()
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: createGormLogger(store.log, store.Settings.Datastore.SlowQueryThreshold),
	})
	if err != nil {
		return dbError(err, "open", "db_type", "sqlite", "path", path)
	}

	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	store.DB = db
	store.log.Info("SQLite database opened", logger.String("path", path))
	return store.performAutoMigration("sqlite")
}
