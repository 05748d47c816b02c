// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file opens the SQLite or PostgreSQL store, installs
// query tracing and runs schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/quote-broadcaster/internal/config"
	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// sqlitePragmas are applied to every pooled connection through the DSN.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type pool struct {
	maxOpen, maxIdle int
}

var (
	sqlitePool   = pool{maxOpen: 10, maxIdle: 10}
	postgresPool = pool{maxOpen: 20, maxIdle: 10}
)

// zlogWriter routes GORM's logger output to zerolog at warn level; only slow
// queries and errors reach it.
type zlogWriter struct{}

func (zlogWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(zlogWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Open opens the database selected by cfg.Driver and installs the
// OpenTelemetry query tracing plugin.
func Open(cfg config.StoreConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		db, err = OpenSQLite(cfg.DBPath)
	case "postgres":
		db, err = OpenPostgres(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install tracing plugin: %w", err)
	}
	return db, nil
}

// sqliteDSN appends the connection pragmas to path.
func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	for i, p := range sqlitePragmas {
		if i == 0 && !strings.Contains(path, "?") {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// OpenSQLite opens (or creates) the SQLite database at path. The parent
// directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig())
	if err != nil {
		return nil, err
	}
	return db, tune(db, sqlitePool)
}

// OpenPostgres connects to PostgreSQL (pgx under the hood) using dsn.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	return db, tune(db, postgresPool)
}

func tune(db *gorm.DB, p pool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return nil
}

// AutoMigrate creates or updates the authors, quotes, and listeners tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Author{},
		&domain.Quote{},
		&domain.Listener{},
	)
}
