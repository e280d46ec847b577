package database

import (
	"fmt"
	"log"

	"stemforge/internal/config"
	"stemforge/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var GormDB *gorm.DB

// InitGorm opens the upload ledger database (sqlite by default, postgres via
// DB_DRIVER) and runs auto-migration. Startup fails hard if the database is
// unreachable.
func InitGorm(cfg *config.Config) *gorm.DB {
	var err error

	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		GormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		GormDB, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := GormDB.AutoMigrate(&models.Upload{}); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	log.Println("Database initialized successfully (uploads)")
	return GormDB
}
