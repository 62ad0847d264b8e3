// Package store persists mapping templates and the internal vendor registry
// with gorm, on sqlite or postgres.
package store

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLiteDSN = "payrecon.db"
)

var ErrUnsupportedDriver = errors.New("unsupported store driver")

type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := strings.TrimSpace(cfg.DSN)

	var dialector gorm.Dialector
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres dsn is required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection keeps in-memory databases alive and serializes writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("store opened", zap.String("driver", driver))
	return db, nil
}

// Migrate creates or updates the tables this package owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&TemplateModel{}, &VendorModel{}); err != nil {
		return fmt.Errorf("migrating store: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
