package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SetupTestDB opens an in-memory SQLite database with gorm logging
// silenced.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return db
}

// AutoMigrate runs gorm auto-migrations for the given models.
func AutoMigrate(t *testing.T, db *gorm.DB, models ...interface{}) {
	t.Helper()

	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to auto-migrate: %v", err)
	}
}

// CreateFixture inserts a model, failing the test on error.
func CreateFixture(t *testing.T, db *gorm.DB, model interface{}) {
	t.Helper()

	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
}

// CreateFixtures inserts several models in order.
func CreateFixtures(t *testing.T, db *gorm.DB, models ...interface{}) {
	t.Helper()

	for _, model := range models {
		CreateFixture(t, db, model)
	}
}
