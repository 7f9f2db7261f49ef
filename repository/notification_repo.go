package repository

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return wrap("create notification", r.DB.WithContext(ctx).Create(n).Error)
}

func (r *NotificationRepository) ListByCustomer(ctx context.Context, customerID uint) ([]models.Notification, error) {
	var notifs []models.Notification
	err := r.DB.WithContext(ctx).Where("customer_id = ?", customerID).Order("id ASC").Find(&notifs).Error
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	return notifs, nil
}
