package models

import "time"

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableReserved  TableStatus = "RESERVED"
	TableOccupied  TableStatus = "OCCUPIED"
)

type Table struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Capacity  int         `gorm:"not null" json:"capacity"`
	Status    TableStatus `gorm:"type:varchar(16);not null;default:'AVAILABLE';index" json:"status"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
}

func (t *Table) IsAvailable() bool {
	return t.Status == TableAvailable
}
