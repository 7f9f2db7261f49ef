package repository

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
)

type WaitingRepository struct {
	DB *gorm.DB
}

func NewWaitingRepository(db *gorm.DB) *WaitingRepository {
	return &WaitingRepository{DB: db}
}

func (r *WaitingRepository) Create(ctx context.Context, entry *models.WaitingEntry) error {
	return wrap("create waiting entry", r.DB.WithContext(ctx).Create(entry).Error)
}

func (r *WaitingRepository) GetByCode(ctx context.Context, code string) (*models.WaitingEntry, error) {
	var entry models.WaitingEntry
	err := r.DB.WithContext(ctx).
		Where("code = ?", code).
		Order("CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END, id DESC").
		First(&entry).Error
	if err != nil {
		return nil, wrap("get waiting entry by code", err)
	}
	return &entry, nil
}

func (r *WaitingRepository) Update(ctx context.Context, entry *models.WaitingEntry) error {
	return wrap("update waiting entry", r.DB.WithContext(ctx).Save(entry).Error)
}

// Delete removes an entry that was never visible to its holder.
func (r *WaitingRepository) Delete(ctx context.Context, id uint) error {
	return wrap("delete waiting entry", r.DB.WithContext(ctx).Delete(&models.WaitingEntry{}, id).Error)
}

func (r *WaitingRepository) List(ctx context.Context) ([]models.WaitingEntry, error) {
	var entries []models.WaitingEntry
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, wrap("list waiting entries", err)
	}
	return entries, nil
}

// ListWaiting returns WAITING entries whose party fits within capacity, in id order.
func (r *WaitingRepository) ListWaiting(ctx context.Context, capacity int) ([]models.WaitingEntry, error) {
	var entries []models.WaitingEntry
	err := r.DB.WithContext(ctx).
		Where("status = ? AND party_size <= ?", models.WaitingQueued, capacity).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, wrap("list waiting entries", err)
	}
	return entries, nil
}

func (r *WaitingRepository) FindActiveByCustomer(ctx context.Context, customerID uint) (*models.WaitingEntry, error) {
	var entry models.WaitingEntry
	err := r.DB.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID, []models.WaitingStatus{models.WaitingQueued, models.WaitingNotified}).
		First(&entry).Error
	if err != nil {
		return nil, wrap("find active waiting entry", err)
	}
	return &entry, nil
}

func (r *WaitingRepository) ListExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitingEntry, error) {
	var entries []models.WaitingEntry
	err := r.DB.WithContext(ctx).
		Where("status = ? AND offer_expires_at IS NOT NULL AND offer_expires_at <= ?", models.WaitingNotified, now).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, wrap("list expired offers", err)
	}
	return entries, nil
}

func (r *WaitingRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.WaitingEntry{}).
		Where("code = ? AND status <> ?", code, models.WaitingCancelled).
		Count(&count).Error
	if err != nil {
		return false, wrap("check waiting code", err)
	}
	return count > 0, nil
}
