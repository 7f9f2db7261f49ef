package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/metrics"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// VacancyHandler is told about every table that has just become AVAILABLE.
// It runs inside the floor lock.
type VacancyHandler interface {
	OnVacancy(ctx context.Context, table models.Table) error
}

// TableTracker is the only writer of table status. Every read-decide-write
// sequence that can change who holds a table runs inside Serialize; the
// methods documented as "requires the floor lock" must only be called there.
type TableTracker struct {
	mu        sync.Mutex
	tables    TableStore
	publisher FloorPublisher
	vacancy   VacancyHandler
}

func NewTableTracker(tables TableStore, publisher FloorPublisher) *TableTracker {
	if publisher == nil {
		publisher = hub.Discard{}
	}
	return &TableTracker{tables: tables, publisher: publisher}
}

// SetVacancyHandler wires the matcher. It is called once during startup.
func (t *TableTracker) SetVacancyHandler(h VacancyHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vacancy = h
}

// Serialize runs fn while holding the floor lock.
func (t *TableTracker) Serialize(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn()
}

// BestFit picks the AVAILABLE table with the smallest capacity that still
// seats partySize, lowest id on ties. It returns nil when nothing fits.
func BestFit(tables []models.Table, partySize int) *models.Table {
	var best *models.Table
	for i := range tables {
		tbl := &tables[i]
		if !tbl.IsAvailable() || tbl.Capacity < partySize {
			continue
		}
		if best == nil ||
			tbl.Capacity < best.Capacity ||
			(tbl.Capacity == best.Capacity && tbl.ID < best.ID) {
			best = tbl
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// FindFit requires the floor lock.
func (t *TableTracker) FindFit(ctx context.Context, partySize int) (*models.Table, error) {
	tables, err := t.tables.ListAvailable(ctx, partySize)
	if err != nil {
		return nil, err
	}
	return BestFit(tables, partySize), nil
}

func (t *TableTracker) Get(ctx context.Context, id uint) (*models.Table, error) {
	table, err := t.tables.GetByID(ctx, id)
	if err != nil {
		return nil, tableLookupError(id, err)
	}
	return table, nil
}

// Allocate moves an AVAILABLE table to status (RESERVED or OCCUPIED).
// Requires the floor lock.
func (t *TableTracker) Allocate(ctx context.Context, id uint, status models.TableStatus) (*models.Table, error) {
	if status != models.TableReserved && status != models.TableOccupied {
		return nil, userErr(ErrValidation, "cannot allocate a table as %s", status)
	}

	table, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !table.IsAvailable() {
		return nil, userErr(ErrConflict, "table %d is already %s, please retry", id, table.Status)
	}

	if err := t.write(ctx, table, status); err != nil {
		return nil, err
	}
	return table, nil
}

// Occupy marks a held table as seated. Requires the floor lock.
func (t *TableTracker) Occupy(ctx context.Context, id uint) error {
	table, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	if table.Status == models.TableOccupied {
		return nil
	}
	return t.write(ctx, table, models.TableOccupied)
}

// Release frees a table and hands it to the vacancy handler. Releasing an
// AVAILABLE table does nothing. Requires the floor lock.
func (t *TableTracker) Release(ctx context.Context, id uint) error {
	table, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	if table.IsAvailable() {
		return nil
	}

	if err := t.write(ctx, table, models.TableAvailable); err != nil {
		return err
	}
	t.fireVacancy(ctx, *table)
	return nil
}

// Revert restores a table status as part of undoing a failed multi-step
// operation. No vacancy event is fired. Requires the floor lock.
func (t *TableTracker) Revert(ctx context.Context, id uint, status models.TableStatus) {
	if err := t.tables.UpdateStatus(ctx, id, status); err != nil {
		utils.ErrorLogger.WithError(err).WithFields(logrus.Fields{
			"table_id": id,
			"status":   status,
		}).Error("failed to revert table status")
		return
	}
	t.publisher.Publish(hub.Message{
		Event: hub.EventTableUpdate,
		Data:  map[string]interface{}{"table_id": id, "status": status},
	})
}

func (t *TableTracker) write(ctx context.Context, table *models.Table, status models.TableStatus) error {
	if err := t.tables.UpdateStatus(ctx, table.ID, status); err != nil {
		return err
	}
	table.Status = status
	metrics.TableTransitions.WithLabelValues(string(status)).Inc()
	t.publisher.Publish(hub.Message{Event: hub.EventTableUpdate, Data: *table})
	return nil
}

func (t *TableTracker) fireVacancy(ctx context.Context, table models.Table) {
	if t.vacancy == nil {
		return
	}
	// The table is already free; a failed match leaves it AVAILABLE for the next request.
	if err := t.vacancy.OnVacancy(ctx, table); err != nil {
		metrics.VacancyMatches.WithLabelValues("error").Inc()
		utils.ErrorLogger.WithError(err).WithField("table_id", table.ID).Error("vacancy match failed")
	}
}

// Snapshot lists every table for staff views.
func (t *TableTracker) Snapshot(ctx context.Context) ([]models.Table, error) {
	return t.tables.List(ctx)
}

// AddTable creates an AVAILABLE table; it counts as a vacancy.
func (t *TableTracker) AddTable(ctx context.Context, capacity int) (*models.Table, error) {
	if capacity <= 0 {
		return nil, userErr(ErrValidation, "capacity must be greater than zero")
	}

	table := &models.Table{Capacity: capacity, Status: models.TableAvailable}
	err := t.Serialize(func() error {
		if err := t.tables.Create(ctx, table); err != nil {
			return err
		}
		t.publisher.Publish(hub.Message{Event: hub.EventTableCreate, Data: *table})
		t.fireVacancy(ctx, *table)
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id": table.ID,
		"capacity": capacity,
	}).Info("table added")
	return table, nil
}

// ResizeTable changes capacity of an AVAILABLE table. Growing a table counts as a vacancy.
func (t *TableTracker) ResizeTable(ctx context.Context, id uint, capacity int) (*models.Table, error) {
	if capacity <= 0 {
		return nil, userErr(ErrValidation, "capacity must be greater than zero")
	}

	var resized *models.Table
	err := t.Serialize(func() error {
		table, err := t.Get(ctx, id)
		if err != nil {
			return err
		}
		if !table.IsAvailable() {
			return userErr(ErrInvalidState, "table %d is %s; capacity can only change while it is available", id, table.Status)
		}

		grew := capacity > table.Capacity
		if err := t.tables.UpdateCapacity(ctx, id, capacity); err != nil {
			return err
		}
		table.Capacity = capacity
		t.publisher.Publish(hub.Message{Event: hub.EventTableUpdate, Data: *table})
		if grew {
			t.fireVacancy(ctx, *table)
		}
		resized = table
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resized, nil
}

// RemoveTable deletes an AVAILABLE table.
func (t *TableTracker) RemoveTable(ctx context.Context, id uint) error {
	return t.Serialize(func() error {
		table, err := t.Get(ctx, id)
		if err != nil {
			return err
		}
		if !table.IsAvailable() {
			return userErr(ErrInvalidState, "table %d is %s and cannot be removed", id, table.Status)
		}
		if err := t.tables.Delete(ctx, id); err != nil {
			return err
		}
		t.publisher.Publish(hub.Message{Event: hub.EventTableDelete, Data: map[string]interface{}{"table_id": id}})
		utils.InfoLogger.WithField("table_id", id).Info("table removed")
		return nil
	})
}
