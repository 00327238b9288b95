package database

import (
	"fmt"

	"fiber-monitor/constants"
	"fiber-monitor/logger"
	"fiber-monitor/models/record"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// InitDB opens the SQLite storage file and prepares the requests table.
func InitDB(storageLocation string) (*gorm.DB, error) {
	if storageLocation == "" {
		storageLocation = constants.DefaultStorageLocation
	}

	db, err := gorm.Open(sqlite.Open(storageLocation), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to open monitor storage", err)
		return nil, fmt.Errorf("opening monitor storage: %w", err)
	}

	if err := EnsureSchema(db); err != nil {
		logger.Error("Failed to prepare monitor schema", err)
		return nil, err
	}
	logger.Success("Monitor storage ready at " + storageLocation)

	return db, nil
}

// EnsureSchema creates the requests table and its indexes. It is idempotent
// and safe to call before every operation, so a fresh or recreated storage
// file heals itself.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&record.Record{}); err != nil {
		return fmt.Errorf("migrating requests table: %w", err)
	}
	return createIndexes(db)
}

// createIndexes creates additional indexes for the dashboard queries
func createIndexes(db *gorm.DB) error {
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp)").Error; err != nil {
		return fmt.Errorf("failed to create requests timestamp index: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_path ON requests(path)").Error; err != nil {
		return fmt.Errorf("failed to create requests path index: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status_code)").Error; err != nil {
		return fmt.Errorf("failed to create requests status_code index: %w", err)
	}
	return nil
}
