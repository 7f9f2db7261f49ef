package models

import (
	"time"
)

// Notification records one outbound delivery attempt.
type Notification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"index" json:"customer_id"`
	Channel    string    `gorm:"type:varchar(16);not null" json:"channel"`
	Subject    string    `gorm:"type:varchar(150)" json:"subject"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Delivered  bool      `gorm:"not null;default:false" json:"delivered"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}
