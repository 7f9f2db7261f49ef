package repository

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
)

type ReservationRepository struct {
	DB *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{DB: db}
}

func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return wrap("create reservation", r.DB.WithContext(ctx).Create(reservation).Error)
}

// GetByCode prefers the live holder of a code; cancelled rows may share it with a newer reservation.
func (r *ReservationRepository) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.DB.WithContext(ctx).
		Where("code = ?", code).
		Order("CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END, id DESC").
		First(&reservation).Error
	if err != nil {
		return nil, wrap("get reservation by code", err)
	}
	return &reservation, nil
}

func (r *ReservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	return wrap("update reservation", r.DB.WithContext(ctx).Save(reservation).Error)
}

// Delete is only used to undo a row that was never handed to a client.
func (r *ReservationRepository) Delete(ctx context.Context, id uint) error {
	return wrap("delete reservation", r.DB.WithContext(ctx).Delete(&models.Reservation{}, id).Error)
}

// List returns all reservations, or only those in status when it is non-empty.
func (r *ReservationRepository) List(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	q := r.DB.WithContext(ctx).Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reservations []models.Reservation
	if err := q.Find(&reservations).Error; err != nil {
		return nil, wrap("list reservations", err)
	}
	return reservations, nil
}

func (r *ReservationRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Reservation{}).
		Where("code = ? AND status <> ?", code, models.ReservationCancelled).
		Count(&count).Error
	if err != nil {
		return false, wrap("check reservation code", err)
	}
	return count > 0, nil
}
