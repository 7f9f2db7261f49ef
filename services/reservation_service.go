package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/metrics"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const (
	dateLayout = "2006-01-02"

	DefaultCheckInEarlyGrace = 30 * time.Minute
	DefaultCheckInLateGrace  = 60 * time.Minute
)

type ReservationPolicy struct {
	CheckInEarlyGrace time.Duration
	CheckInLateGrace  time.Duration
	Location          *time.Location
	CurrencySymbol    string
}

type ReservationServiceOptions struct {
	Reservations ReservationStore
	Customers    CustomerStore
	Tracker      *TableTracker
	Codes        *CodeGenerator
	Hours        *HoursService
	Prices       PriceSource
	Notifier     Notifier
	Publisher    FloorPublisher
	Policy       ReservationPolicy
	Clock        Clock
}

// ReservationService owns the reservation lifecycle. It is the only writer
// of reservation status.
type ReservationService struct {
	reservations ReservationStore
	customers    CustomerStore
	tracker      *TableTracker
	codes        *CodeGenerator
	hours        *HoursService
	prices       PriceSource
	notifier     Notifier
	publisher    FloorPublisher
	policy       ReservationPolicy
	now          Clock
}

func NewReservationService(opts ReservationServiceOptions) *ReservationService {
	policy := opts.Policy
	if policy.CheckInEarlyGrace == 0 {
		policy.CheckInEarlyGrace = DefaultCheckInEarlyGrace
	}
	if policy.CheckInLateGrace == 0 {
		policy.CheckInLateGrace = DefaultCheckInLateGrace
	}
	if policy.Location == nil {
		policy.Location = time.Local
	}
	if policy.CurrencySymbol == "" {
		policy.CurrencySymbol = "€"
	}

	s := &ReservationService{
		reservations: opts.Reservations,
		customers:    opts.Customers,
		tracker:      opts.Tracker,
		codes:        opts.Codes,
		hours:        opts.Hours,
		prices:       opts.Prices,
		notifier:     opts.Notifier,
		publisher:    opts.Publisher,
		policy:       policy,
		now:          opts.Clock,
	}
	if s.prices == nil {
		s.prices = CoverChargePricing{}
	}
	if s.publisher == nil {
		s.publisher = hub.Discard{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ParseSlot combines a YYYY-MM-DD date and HH:MM time in the restaurant's location.
func (s *ReservationService) ParseSlot(date, clock string) (time.Time, error) {
	slot, err := time.ParseInLocation(dateLayout+" "+clockLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), s.policy.Location)
	if err != nil {
		return time.Time{}, userErr(ErrValidation, "date must be YYYY-MM-DD and time HH:MM")
	}
	return slot, nil
}

// Create books a slot. When a table fits the reservation is APPROVED and the
// table RESERVED; otherwise it is kept as PENDING.
func (s *ReservationService) Create(ctx context.Context, customerID uint, date, clock string, partySize int) (*models.Reservation, error) {
	if err := validatePartySize(partySize); err != nil {
		return nil, err
	}
	slot, err := s.ParseSlot(date, clock)
	if err != nil {
		return nil, err
	}
	if slot.Before(s.now().Add(-s.policy.CheckInLateGrace)) {
		return nil, userErr(ErrValidation, "requested slot is in the past")
	}
	if s.hours != nil {
		open, err := s.hours.IsOpen(ctx, slot)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, userErr(ErrValidation, "the restaurant is closed at %s", slot.Format("Mon 15:04"))
		}
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, customerLookupError(customerID, err)
	}

	reservation := &models.Reservation{
		CustomerID:  customerID,
		RequestedAt: slot,
		PartySize:   partySize,
		Status:      models.ReservationPending,
	}

	err = s.tracker.Serialize(func() error {
		table, err := s.tracker.FindFit(ctx, partySize)
		if err != nil {
			return err
		}
		code, err := s.codes.Next(ctx)
		if err != nil {
			return err
		}
		reservation.Code = code

		if table == nil {
			return s.reservations.Create(ctx, reservation)
		}

		// Reservation row first, table second; a failed allocation removes the row.
		reservation.Status = models.ReservationApproved
		reservation.TableID = &table.ID
		if err := s.reservations.Create(ctx, reservation); err != nil {
			return err
		}
		if _, err := s.tracker.Allocate(ctx, table.ID, models.TableReserved); err != nil {
			if derr := s.reservations.Delete(ctx, reservation.ID); derr != nil {
				utils.ErrorLogger.Printf("Failed to remove reservation %s after allocation error: %v", code, derr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(reservation)
	fields := logrus.Fields{
		"code":       reservation.Code,
		"status":     reservation.Status,
		"party_size": partySize,
	}
	if reservation.TableID != nil {
		fields["table_id"] = *reservation.TableID
	}
	utils.InfoLogger.WithFields(fields).Info("reservation created")
	return reservation, nil
}

// CheckIn seats the party of an APPROVED reservation.
func (s *ReservationService) CheckIn(ctx context.Context, code string) (*models.Reservation, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	var reservation *models.Reservation
	err = s.tracker.Serialize(func() error {
		r, err := s.reservations.GetByCode(ctx, code)
		if err != nil {
			return codeLookupError(code, err)
		}

		now := s.now()
		switch r.Status {
		case models.ReservationFinished, models.ReservationCancelled:
			return userErr(ErrAlreadyClosed, "reservation %s is %s", code, strings.ToLower(string(r.Status)))
		case models.ReservationActive:
			return userErr(ErrInvalidState, "reservation %s is already checked in", code)
		case models.ReservationPending:
			return userErr(ErrInvalidState, "reservation %s has no table assigned yet", code)
		}

		if !r.FromWaitingList() {
			opens := r.RequestedAt.Add(-s.policy.CheckInEarlyGrace)
			if now.Before(opens) {
				return userErr(ErrNotYetActive, "check-in opens at %s", opens.In(s.policy.Location).Format("2006-01-02 15:04"))
			}
			if now.After(r.RequestedAt.Add(s.policy.CheckInLateGrace)) {
				return userErr(ErrInvalidState, "check-in window for reservation %s has passed", code)
			}
		}
		if !r.Status.CanTransitionTo(models.ReservationActive) || r.TableID == nil {
			return userErr(ErrInvalidState, "reservation %s cannot be checked in", code)
		}

		prev := *r
		r.Status = models.ReservationActive
		r.ArrivedAt = &now
		if err := s.reservations.Update(ctx, r); err != nil {
			return err
		}
		if err := s.tracker.Occupy(ctx, *r.TableID); err != nil {
			s.restore(ctx, &prev)
			return err
		}
		reservation = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(reservation)
	utils.InfoLogger.Printf("Reservation %s checked in at table %d", reservation.Code, *reservation.TableID)
	return reservation, nil
}

// Bill computes what an ACTIVE reservation owes without closing it.
func (s *ReservationService) Bill(ctx context.Context, code string) (*Bill, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	r, err := s.reservations.GetByCode(ctx, code)
	if err != nil {
		return nil, codeLookupError(code, err)
	}
	if r.Status != models.ReservationActive {
		return nil, fmt.Errorf("bill %s: %w", code, ErrNotActive)
	}
	return s.billFor(ctx, r)
}

func (s *ReservationService) billFor(ctx context.Context, r *models.Reservation) (*Bill, error) {
	customer, err := s.customers.GetByID(ctx, r.CustomerID)
	if err != nil {
		return nil, customerLookupError(r.CustomerID, err)
	}
	subtotal, err := s.prices.Subtotal(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("price reservation %s: %w", r.Code, err)
	}
	bill := ComputeBill(r.Code, subtotal, customer.Role)
	return &bill, nil
}

// Checkout closes an ACTIVE reservation, stores its bill and frees the
// table. The release hands the table to the waiting list before the floor
// lock is dropped.
func (s *ReservationService) Checkout(ctx context.Context, code string) (*Bill, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	var (
		reservation *models.Reservation
		bill        *Bill
	)
	err = s.tracker.Serialize(func() error {
		r, err := s.reservations.GetByCode(ctx, code)
		if err != nil {
			return codeLookupError(code, err)
		}
		if r.Status != models.ReservationActive || !r.Status.CanTransitionTo(models.ReservationFinished) {
			return fmt.Errorf("checkout %s: %w", code, ErrNotActive)
		}

		b, err := s.billFor(ctx, r)
		if err != nil {
			return err
		}

		prev := *r
		now := s.now()
		r.Status = models.ReservationFinished
		r.LeftAt = &now
		r.Subtotal = b.Subtotal
		r.Discount = b.Discount
		r.Total = b.Total
		if err := s.reservations.Update(ctx, r); err != nil {
			return err
		}
		if r.TableID != nil {
			if err := s.tracker.Release(ctx, *r.TableID); err != nil {
				s.restore(ctx, &prev)
				return err
			}
		}
		reservation, bill = r, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(reservation)
	utils.InfoLogger.Printf("Reservation %s paid %s", code, utils.FormatCurrency(bill.Total, s.policy.CurrencySymbol))
	s.notify(Notice{
		CustomerID: reservation.CustomerID,
		Subject:    "Thank you for dining with us",
		Message: fmt.Sprintf("We received %s for reservation %s. We hope to see you again soon.",
			utils.FormatCurrency(bill.Total, s.policy.CurrencySymbol), code),
	})
	return bill, nil
}

// Requester identifies who asks for a cancellation.
type Requester struct {
	CustomerID uint
	Staff      bool
}

// Cancel withdraws a PENDING or APPROVED reservation and frees its table.
func (s *ReservationService) Cancel(ctx context.Context, code string, requester Requester) (*models.Reservation, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	var reservation *models.Reservation
	err = s.tracker.Serialize(func() error {
		r, err := s.reservations.GetByCode(ctx, code)
		if err != nil {
			return codeLookupError(code, err)
		}
		if !requester.Staff && r.CustomerID != requester.CustomerID {
			return userErr(ErrInvalidState, "reservation %s does not belong to you", code)
		}
		if !r.Status.CanTransitionTo(models.ReservationCancelled) {
			return userErr(ErrInvalidState, "reservation %s is %s and cannot be cancelled", code, strings.ToLower(string(r.Status)))
		}

		prev := *r
		r.Status = models.ReservationCancelled
		if err := s.reservations.Update(ctx, r); err != nil {
			return err
		}
		if prev.Status == models.ReservationApproved && r.TableID != nil {
			if err := s.tracker.Release(ctx, *r.TableID); err != nil {
				s.restore(ctx, &prev)
				return err
			}
		}
		reservation = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(reservation)
	utils.InfoLogger.Printf("Reservation %s cancelled", code)
	return reservation, nil
}

// Admit books the table a waiting-list party has been given. The table is
// already RESERVED by the caller. Requires the floor lock.
func (s *ReservationService) Admit(ctx context.Context, entry *models.WaitingEntry, table models.Table) (*models.Reservation, error) {
	if entry.PartySize > table.Capacity {
		return nil, userErr(ErrConflict, "table %d seats %d, party of %d does not fit", table.ID, table.Capacity, entry.PartySize)
	}
	code, err := s.codes.Next(ctx)
	if err != nil {
		return nil, err
	}

	entryID := entry.ID
	tableID := table.ID
	reservation := &models.Reservation{
		CustomerID:     entry.CustomerID,
		RequestedAt:    s.now(),
		PartySize:      entry.PartySize,
		Status:         models.ReservationApproved,
		Code:           code,
		TableID:        &tableID,
		WaitingEntryID: &entryID,
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, err
	}

	s.recordTransition(reservation)
	return reservation, nil
}

func (s *ReservationService) Get(ctx context.Context, code string) (*models.Reservation, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	r, err := s.reservations.GetByCode(ctx, code)
	if err != nil {
		return nil, codeLookupError(code, err)
	}
	return r, nil
}

// List returns reservations, optionally filtered by status.
func (s *ReservationService) List(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	return s.reservations.List(ctx, status)
}

func (s *ReservationService) restore(ctx context.Context, prev *models.Reservation) {
	if err := s.reservations.Update(ctx, prev); err != nil {
		utils.ErrorLogger.WithError(err).WithField("code", prev.Code).Error("failed to restore reservation")
	}
}

func (s *ReservationService) recordTransition(r *models.Reservation) {
	metrics.ReservationTransitions.WithLabelValues(string(r.Status)).Inc()
	s.publisher.Publish(hub.Message{Event: hub.EventReservationUpdate, Data: *r})
}

func (s *ReservationService) notify(n Notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(n)
}
