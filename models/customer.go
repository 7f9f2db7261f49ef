package models

import (
	"time"
)

// Customer is a diner. Rows are never deleted, only upgraded.
type Customer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Phone            *string   `gorm:"type:varchar(32);uniqueIndex" json:"phone,omitempty"`
	Email            *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	FirstName        string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName         string    `gorm:"type:varchar(100)" json:"last_name"`
	Role             Role      `gorm:"type:varchar(32);not null;default:'CASUAL'" json:"role"`
	SubscriberNumber *string   `gorm:"type:varchar(32);uniqueIndex" json:"subscriber_number,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

// DisplayName falls back to the phone number for customers captured at the door.
func (c *Customer) DisplayName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" && c.Phone != nil {
		return *c.Phone
	}
	if name == "" {
		return "guest"
	}
	return name
}
