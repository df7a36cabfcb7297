package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"placement/internal/config"
	"placement/internal/model"
)

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DBConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite has a single writer, and each connection to ":memory:" is a
		// separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("Database ready", zap.String("driver", cfg.Driver))
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Evaluation{}); err != nil {
		return fmt.Errorf("failed to auto-migrate the database: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated in-memory sqlite database.
func OpenMemory() (*gorm.DB, error) {
	return Open(config.DBConfig{Driver: "sqlite", Path: ":memory:"}, nil)
}
