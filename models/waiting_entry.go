package models

import "time"

type WaitingStatus string

const (
	WaitingQueued    WaitingStatus = "WAITING"
	WaitingNotified  WaitingStatus = "NOTIFIED"
	WaitingFulfilled WaitingStatus = "FULFILLED"
	WaitingCancelled WaitingStatus = "CANCELLED"
)

// IsActive is true while the entry still counts against the one-per-customer limit.
func (s WaitingStatus) IsActive() bool {
	return s == WaitingQueued || s == WaitingNotified
}

type WaitingEntry struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	CustomerID     uint          `gorm:"not null;index" json:"customer_id"`
	RequestedAt    time.Time     `gorm:"not null" json:"requested_at"`
	PartySize      int           `gorm:"not null" json:"party_size"`
	Status         WaitingStatus `gorm:"type:varchar(16);not null;default:'WAITING';index" json:"status"`
	Code           string        `gorm:"type:varchar(16);not null;index" json:"code"`
	TableID        *uint         `json:"table_id,omitempty"`
	NotifiedAt     *time.Time    `json:"notified_at,omitempty"`
	OfferExpiresAt *time.Time    `gorm:"index" json:"offer_expires_at,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}
