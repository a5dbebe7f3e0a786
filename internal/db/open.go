package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver       string
	SQLitePath   string
	PostgresDSN  string
	MaxOpenConns int
	Logger       zerolog.Logger
}

// Open connects to the configured store and applies embedded migrations.
func Open(options Options) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(options.Driver)) {
	case "", DriverSQLite:
		return OpenSQLite(options.SQLitePath, options.Logger)
	case DriverPostgres:
		return OpenPostgres(options.PostgresDSN, options.MaxOpenConns, options.Logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", options.Driver)
	}
}

func OpenSQLite(dbPath string, logger zerolog.Logger) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY under
	// concurrent appends.
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := ApplyMigrations(database); err != nil {
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}

	return database, nil
}

func OpenPostgres(dsn string, maxOpenConns int, logger zerolog.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("open postgres: empty dsn")
	}

	database, err := gorm.Open(postgres.Open(dsn), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns / 2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := ApplyMigrations(database); err != nil {
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}

	return database, nil
}

func gormConfig(logger zerolog.Logger) *gorm.Config {
	writer := logger.With().Str("component", "gorm").Logger()
	return &gorm.Config{
		Logger: gormlogger.New(
			&writer,
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}
