package models

import "time"

// OpeningHours holds one weekday. Opens and Closes are "HH:MM" in the restaurant's location.
type OpeningHours struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Weekday   int       `gorm:"not null;uniqueIndex" json:"weekday"`
	Opens     string    `gorm:"type:varchar(5);not null" json:"opens"`
	Closes    string    `gorm:"type:varchar(5);not null" json:"closes"`
	Closed    bool      `gorm:"not null;default:false" json:"closed"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
