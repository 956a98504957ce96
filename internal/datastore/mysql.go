package datastore

import (
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// MySQL connection pool limits
const (
	mysqlMaxOpenConns    = 10
	mysqlMaxIdleConns    = 5
	mysqlConnMaxLifetime = 30 * time.Minute
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// mysqlDSN formats the connection string. Credentials never pass through
// string concatenation, so special characters in passwords are safe.
func mysqlDSN(settings *conf.Settings) string {
	m := settings.Datastore.MySQL
	cfg := mysqldriver.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to MySQL and migrates the schema
func (store *MySQLStore) Open() error {
	m := store.Settings.Datastore.MySQL

	db, err := gorm.Open(mysql.Open(mysqlDSN(store.Settings)), &gorm.Config{
		Logger: createGormLogger(store.log, store.Settings.Datastore.SlowQueryThreshold),
	})
	if err != nil {
		store.log.Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open", "db_type", "mysql", "host", m.Host)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", "db_type", "mysql")
	}
	sqlDB.SetMaxOpenConns(mysqlMaxOpenConns)
	sqlDB.SetMaxIdleConns(mysqlMaxIdleConns)
	sqlDB.SetConnMaxLifetime(mysqlConnMaxLifetime)

	store.DB = db
	store.log.Info("MySQL database opened",
		logger.String("host", m.Host),
		logger.String("database", m.Database))
	return store.performAutoMigration("mysql")
}
