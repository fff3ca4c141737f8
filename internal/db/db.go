package db

import (
	"fmt"
	"os"            // For creating the store directory
	"path/filepath" // For the store file directory

	"mpesa_bridge/internal/config" // Custom package for configuration

	"gorm.io/driver/mysql"  // MySQL driver for GORM
	"gorm.io/driver/sqlite" // SQLite driver for GORM
	"gorm.io/gorm"          // GORM ORM library
	"gorm.io/gorm/logger"   // GORM logger levels
)

// Open connects to the store selected by cfg.DBDriver
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,                                  // Surface gorm.ErrDuplicatedKey on unique violations
		Logger:         logger.Default.LogMode(logger.Silent), // Request logging is done by logrus
	}
	switch cfg.DBDriver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN()), gcfg)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenMemory opens a private in-memory sqlite store with the schema applied
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1) // Every connection would otherwise get its own empty database
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
