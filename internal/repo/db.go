// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// MySQL (primary) and SQLite (local fallback, pure Go driver), plus schema
// migrations.
package repo

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/remindly/go-reminder-backend/internal/config"
	"github.com/remindly/go-reminder-backend/internal/domain"
)

// OpenMySQL opens a MySQL-backed GORM handle, verifies connectivity with a
// bounded number of pings, and applies the pool sizing from cfg. The driver
// pool's max lifetime matches the recycle interval so the server never sees
// a connection older than ConnMaxAge.
func OpenMySQL(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	dsn, err := cfg.MySQLDSN()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Pool.Size + cfg.Pool.Overflow)
	sqlDB.SetMaxIdleConns(cfg.Pool.Size)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxAge)

	if err := pingWithRetry(ctx, sqlDB, cfg.Pool.PingRetries, log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenGormConn wraps an existing *sql.DB (or a pinned *sql.Conn, anything
// satisfying gorm.ConnPool) in a MySQL-dialect GORM handle without issuing
// version or configuration queries.
func OpenGormConn(conn gorm.ConnPool) (*gorm.DB, error) {
	return gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs. Used
// as the local fallback when no MYSQL_URL is configured.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// Open picks the backend from cfg: MySQL when MYSQL_URL is set, otherwise
// the local SQLite file.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.UseMySQL() {
		log.Info().Msg("connecting to MySQL")
		return OpenMySQL(ctx, cfg, log)
	}
	log.Info().Str("path", cfg.DBPath).Msg("no MYSQL_URL set, using local SQLite")
	return OpenSQLite(cfg.DBPath)
}

// AutoMigrate applies the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.AllModels()...)
}

// pingWithRetry probes the server up to retries times with a short backoff
// between attempts.
func pingWithRetry(ctx context.Context, db *sql.DB, retries int, log zerolog.Logger) error {
	if retries < 1 {
		retries = 1
	}
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("database ping failed")
		if attempt < retries {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}
