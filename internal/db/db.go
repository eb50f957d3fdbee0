// internal/db/db.go
package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

func Connect(dsn string, development bool) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if development {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	log.Info().Msg("database connected")
	return gdb, nil
}

// Migrate creates or updates every table the API owns.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Booking{},
		&models.PaymentAttempt{},
	)
}
