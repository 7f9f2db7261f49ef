package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/models"
)

type TableStore interface {
	Create(ctx context.Context, table *models.Table) error
	GetByID(ctx context.Context, id uint) (*models.Table, error)
	List(ctx context.Context) ([]models.Table, error)
	ListAvailable(ctx context.Context, minCapacity int) ([]models.Table, error)
	UpdateStatus(ctx context.Context, id uint, status models.TableStatus) error
	UpdateCapacity(ctx context.Context, id uint, capacity int) error
	Delete(ctx context.Context, id uint) error
}

type ReservationStore interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	GetByCode(ctx context.Context, code string) (*models.Reservation, error)
	Update(ctx context.Context, reservation *models.Reservation) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
}

type WaitingStore interface {
	Create(ctx context.Context, entry *models.WaitingEntry) error
	GetByCode(ctx context.Context, code string) (*models.WaitingEntry, error)
	Update(ctx context.Context, entry *models.WaitingEntry) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.WaitingEntry, error)
	ListWaiting(ctx context.Context, capacity int) ([]models.WaitingEntry, error)
	FindActiveByCustomer(ctx context.Context, customerID uint) (*models.WaitingEntry, error)
	ListExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitingEntry, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
}

type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id uint) (*models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
}

type HoursStore interface {
	List(ctx context.Context) ([]models.OpeningHours, error)
	GetByWeekday(ctx context.Context, weekday int) (*models.OpeningHours, error)
	Upsert(ctx context.Context, hours *models.OpeningHours) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// FloorPublisher receives committed floor changes.
type FloorPublisher interface {
	Publish(msg hub.Message)
}

// Notifier accepts outbound notices without blocking the caller.
type Notifier interface {
	Enqueue(notice Notice) bool
}

// Notice is one human-readable message for a customer.
type Notice struct {
	CustomerID uint
	Subject    string
	Message    string
}

// Clock is swapped in tests.
type Clock func() time.Time
