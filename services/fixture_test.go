package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/repository"
)

// openTestDB returns a private in-memory database with every model migrated.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.Table{},
		&models.Reservation{},
		&models.WaitingEntry{},
		&models.OpeningHours{},
		&models.Notification{},
	))
	return db
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Enqueue(notice Notice) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type fixedPrice float64

func (p fixedPrice) Subtotal(context.Context, *models.Reservation) (float64, error) {
	return float64(p), nil
}

// flakyTables fails status writes on demand.
type flakyTables struct {
	*repository.TableRepository
	failUpdates bool
}

func (f *flakyTables) UpdateStatus(ctx context.Context, id uint, status models.TableStatus) error {
	if f.failUpdates {
		return fmt.Errorf("update table status: %w", ErrStoreUnavailable)
	}
	return f.TableRepository.UpdateStatus(ctx, id, status)
}

type countingVacancy struct {
	calls []uint
}

func (c *countingVacancy) OnVacancy(_ context.Context, table models.Table) error {
	c.calls = append(c.calls, table.ID)
	return nil
}

type fixture struct {
	ctx          context.Context
	db           *gorm.DB
	now          time.Time
	tableRepo    *flakyTables
	reservRepo   *repository.ReservationRepository
	waitingRepo  *repository.WaitingRepository
	customerRepo *repository.CustomerRepository
	hoursRepo    *repository.HoursRepository
	tracker      *TableTracker
	hours        *HoursService
	reservations *ReservationService
	waiting      *WaitingListService
	notifier     *recordingNotifier
}

// newFixture wires the services the way main does, on a fresh database,
// with the clock frozen at 2030-06-01 18:00 UTC (a Saturday).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)

	f := &fixture{
		ctx:          context.Background(),
		db:           db,
		now:          time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC),
		tableRepo:    &flakyTables{TableRepository: repository.NewTableRepository(db)},
		reservRepo:   repository.NewReservationRepository(db),
		waitingRepo:  repository.NewWaitingRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		hoursRepo:    repository.NewHoursRepository(db),
		notifier:     &recordingNotifier{},
	}
	clock := func() time.Time { return f.now }

	codes := NewCodeGenerator(f.reservRepo, f.waitingRepo)
	f.tracker = NewTableTracker(f.tableRepo, hub.Discard{})
	f.hours = NewHoursService(f.hoursRepo, time.UTC)
	f.reservations = NewReservationService(ReservationServiceOptions{
		Reservations: f.reservRepo,
		Customers:    f.customerRepo,
		Tracker:      f.tracker,
		Codes:        codes,
		Hours:        f.hours,
		Prices:       fixedPrice(100),
		Notifier:     f.notifier,
		Policy:       ReservationPolicy{Location: time.UTC},
		Clock:        clock,
	})
	f.waiting = NewWaitingListService(WaitingListOptions{
		Entries:   f.waitingRepo,
		Customers: f.customerRepo,
		Tracker:   f.tracker,
		Admitter:  f.reservations,
		Codes:     codes,
		Notifier:  f.notifier,
		Clock:     clock,
	})
	f.tracker.SetVacancyHandler(f.waiting)
	return f
}

func (f *fixture) addTable(t *testing.T, capacity int) models.Table {
	t.Helper()
	table := models.Table{Capacity: capacity, Status: models.TableAvailable}
	require.NoError(t, f.db.Create(&table).Error)
	return table
}

var phoneSeq int64

func (f *fixture) addCustomer(t *testing.T, role models.Role) models.Customer {
	t.Helper()
	phone := fmt.Sprintf("+3161%07d", atomic.AddInt64(&phoneSeq, 1))
	customer := models.Customer{Phone: &phone, FirstName: "Test", LastName: "Diner", Role: role}
	require.NoError(t, f.db.Create(&customer).Error)
	return customer
}

func (f *fixture) tableStatus(t *testing.T, id uint) models.TableStatus {
	t.Helper()
	table, err := f.tableRepo.GetByID(f.ctx, id)
	require.NoError(t, err)
	return table.Status
}

func (f *fixture) entry(t *testing.T, code string) *models.WaitingEntry {
	t.Helper()
	entry, err := f.waitingRepo.GetByCode(f.ctx, code)
	require.NoError(t, err)
	return entry
}

// seat books and checks in a party so that its table is OCCUPIED.
func (f *fixture) seat(t *testing.T, customer models.Customer, partySize int) *models.Reservation {
	t.Helper()
	r, err := f.reservations.Create(f.ctx, customer.ID, "2030-06-01", "18:00", partySize)
	require.NoError(t, err)
	require.Equal(t, models.ReservationApproved, r.Status)
	r, err = f.reservations.CheckIn(f.ctx, r.Code)
	require.NoError(t, err)
	return r
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
