package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/fasttech-foods/backoffice-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ConnectDatabase opens the local store. Postgres URLs use the postgres
// driver; anything else is treated as a sqlite DSN.
func ConnectDatabase(databaseURL string) error {
	if databaseURL == "" {
		databaseURL = "backoffice.db"
		log.Println("DATABASE_URL not set, using default:", databaseURL)
	}

	db, err := gorm.Open(dialectorFor(databaseURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	log.Println("Database connection established successfully")
	return nil
}

func dialectorFor(databaseURL string) gorm.Dialector {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.Open(databaseURL)
	}
	return sqlite.Open(databaseURL)
}

// Migrate creates or updates the tables owned by the back office
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.LineItem{}, &models.Employee{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
