package database

import (
	"github.com/nikohapp/nikoh-api/pkg/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates all application tables. Production
// deployments use the versioned SQL migrations under migrations/; this
// is used by tests and local development.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Interest{},
		&models.Match{},
		&models.Message{},
		&models.SearchPreference{},
		&models.Selfie{},
		&models.Verification{},
		&models.Payment{},
		&models.Report{},
	)
}
