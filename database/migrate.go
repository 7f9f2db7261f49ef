package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Customer{},
		&models.Table{},
		&models.Reservation{},
		&models.WaitingEntry{},
		&models.OpeningHours{},
		&models.Notification{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedTables creates the given capacities when the floor is empty, so a
// fresh install has something to book.
func SeedTables(ctx context.Context, db *gorm.DB, capacities []int) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Table{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || len(capacities) == 0 {
		return nil
	}

	tables := make([]models.Table, 0, len(capacities))
	for _, c := range capacities {
		if c <= 0 {
			continue
		}
		tables = append(tables, models.Table{Capacity: c, Status: models.TableAvailable})
	}
	if len(tables) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Create(&tables).Error; err != nil {
		return err
	}
	utils.InfoLogger.Printf("Seeded %d tables", len(tables))
	return nil
}
