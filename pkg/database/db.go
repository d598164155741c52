// Package database opens the shared GORM connection pool.
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kumarketplace/marketplace/pkg/logger"
)

// Options describes one connection pool.
type Options struct {
	Driver string // sqlite | postgres | mysql | sqlserver
	DSN    string

	// MaxOpenConns bounds concurrent connections; callers beyond it wait.
	MaxOpenConns int
	MaxIdleConns int

	// SlowQuery logs statements slower than this at WARN. Zero disables.
	SlowQuery time.Duration

	// Metrics registers the query latency callbacks.
	Metrics bool
}

// Open connects, configures the pool and pings. The returned handle is meant
// to be created once per process and passed to repositories.
func Open(opts Options) (*gorm.DB, error) {
	dialector, err := buildDialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: build dialector: %w", err)
	}

	gormLog := gormlogger.Default.LogMode(gormlogger.Silent)
	if opts.SlowQuery > 0 {
		gormLog = gormlogger.New(slogWriter{}, gormlogger.Config{
			SlowThreshold:             opts.SlowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	if opts.Metrics {
		if err := Instrument(db); err != nil {
			return nil, fmt.Errorf("database: instrument: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return db, nil
}

// Ping checks the pool is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql, sqlserver)", driver)
	}
}

// slogWriter routes GORM's slow-query lines into the application logger.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...interface{}) {
	logger.Warn("database: " + fmt.Sprintf(format, args...))
}
