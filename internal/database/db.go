package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

// Connect opens the agent's local sqlite store. The path is a plain file next
// to the agent; ":memory:" is accepted for tests.
func Connect(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DeviceIdentity{},
		&models.QueuedSubmission{},
		&models.SubmittedToken{},
	)
}
