package repository

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HoursRepository struct {
	DB *gorm.DB
}

func NewHoursRepository(db *gorm.DB) *HoursRepository {
	return &HoursRepository{DB: db}
}

func (r *HoursRepository) List(ctx context.Context) ([]models.OpeningHours, error) {
	var hours []models.OpeningHours
	if err := r.DB.WithContext(ctx).Order("weekday ASC").Find(&hours).Error; err != nil {
		return nil, wrap("list opening hours", err)
	}
	return hours, nil
}

func (r *HoursRepository) GetByWeekday(ctx context.Context, weekday int) (*models.OpeningHours, error) {
	var hours models.OpeningHours
	if err := r.DB.WithContext(ctx).Where("weekday = ?", weekday).First(&hours).Error; err != nil {
		return nil, wrap("get opening hours", err)
	}
	return &hours, nil
}

// Upsert keys on weekday.
func (r *HoursRepository) Upsert(ctx context.Context, hours *models.OpeningHours) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "weekday"}},
		DoUpdates: clause.AssignmentColumns([]string{"opens", "closes", "closed", "updated_at"}),
	}).Create(hours).Error
	return wrap("upsert opening hours", err)
}
