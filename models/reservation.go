package models

import (
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationApproved  ReservationStatus = "APPROVED"
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationFinished  ReservationStatus = "FINISHED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:  {ReservationApproved, ReservationCancelled},
	ReservationApproved: {ReservationActive, ReservationCancelled},
	ReservationActive:   {ReservationFinished},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationFinished || s == ReservationCancelled
}

// Reservation is a booked or requested dining slot (an "order" on the floor).
type Reservation struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	CustomerID     uint              `gorm:"not null;index" json:"customer_id"`
	RequestedAt    time.Time         `gorm:"not null" json:"requested_at"`
	PartySize      int               `gorm:"not null" json:"party_size"`
	Status         ReservationStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	Code           string            `gorm:"type:varchar(16);not null;index" json:"code"`
	TableID        *uint             `gorm:"index" json:"table_id,omitempty"`
	WaitingEntryID *uint             `json:"waiting_entry_id,omitempty"`
	ArrivedAt      *time.Time        `json:"arrived_at,omitempty"`
	LeftAt         *time.Time        `json:"left_at,omitempty"`
	Subtotal       float64           `gorm:"type:decimal(10,2);not null;default:0.00" json:"subtotal"`
	Discount       float64           `gorm:"type:decimal(10,2);not null;default:0.00" json:"discount"`
	Total          float64           `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}

// FromWaitingList is true for parties seated through the waiting list; they skip the slot window.
func (r *Reservation) FromWaitingList() bool {
	return r.WaitingEntryID != nil
}
