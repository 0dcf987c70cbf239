package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/desktop-automation/scenario"
)

// Config holds database connection configuration. Driver selects
// between mysql (shared deployments) and sqlite (single-machine runner).
type Config struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	Path         string // sqlite file path
	MaxOpenConns int
	MaxIdleConns int
}

// Connect opens a database connection for the configured driver.
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = "desktop-automation.db"
		}
		dialector = sqlite.Open(path)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate applies the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&scenario.Scenario{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
