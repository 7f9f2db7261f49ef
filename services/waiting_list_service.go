package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/metrics"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const DefaultOfferWindow = time.Hour

// Admitter turns a seated waiting entry into a reservation.
type Admitter interface {
	Admit(ctx context.Context, entry *models.WaitingEntry, table models.Table) (*models.Reservation, error)
}

type JoinOutcome string

const (
	JoinImmediate JoinOutcome = "IMMEDIATE"
	JoinWaiting   JoinOutcome = "WAITING"
	JoinDuplicate JoinOutcome = "DUPLICATE"
)

type JoinResult struct {
	Outcome     JoinOutcome
	Entry       *models.WaitingEntry
	Reservation *models.Reservation
}

// String renders the result the way clients expect it:
// "IMMEDIATE:<tableId>:<reservationCode>", "WAITING" or "DUPLICATE".
func (r JoinResult) String() string {
	if r.Outcome == JoinImmediate && r.Reservation != nil && r.Reservation.TableID != nil {
		return fmt.Sprintf("%s:%d:%s", JoinImmediate, *r.Reservation.TableID, r.Reservation.Code)
	}
	return string(r.Outcome)
}

type WaitingListOptions struct {
	Entries     WaitingStore
	Customers   CustomerStore
	Tracker     *TableTracker
	Admitter    Admitter
	Codes       *CodeGenerator
	Notifier    Notifier
	Publisher   FloorPublisher
	OfferWindow time.Duration
	Clock       Clock
}

// WaitingListService owns waiting entries and decides who gets a vacated table.
type WaitingListService struct {
	entries     WaitingStore
	customers   CustomerStore
	tracker     *TableTracker
	admitter    Admitter
	codes       *CodeGenerator
	notifier    Notifier
	publisher   FloorPublisher
	offerWindow time.Duration
	now         Clock
}

func NewWaitingListService(opts WaitingListOptions) *WaitingListService {
	s := &WaitingListService{
		entries:     opts.Entries,
		customers:   opts.Customers,
		tracker:     opts.Tracker,
		admitter:    opts.Admitter,
		codes:       opts.Codes,
		notifier:    opts.Notifier,
		publisher:   opts.Publisher,
		offerWindow: opts.OfferWindow,
		now:         opts.Clock,
	}
	if s.offerWindow <= 0 {
		s.offerWindow = DefaultOfferWindow
	}
	if s.publisher == nil {
		s.publisher = hub.Discard{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SelectForVacancy ranks WAITING entries that fit capacity by largest party
// first, then lowest id. It returns nil when no entry fits.
func SelectForVacancy(entries []models.WaitingEntry, capacity int) *models.WaitingEntry {
	var chosen *models.WaitingEntry
	for i := range entries {
		e := &entries[i]
		if e.Status != models.WaitingQueued || e.PartySize > capacity {
			continue
		}
		if chosen == nil ||
			e.PartySize > chosen.PartySize ||
			(e.PartySize == chosen.PartySize && e.ID < chosen.ID) {
			chosen = e
		}
	}
	if chosen == nil {
		return nil
	}
	picked := *chosen
	return &picked
}

// Join queues a party, or seats it straight away when a table already fits.
// A customer with a WAITING or NOTIFIED entry gets ErrDuplicateActive.
func (s *WaitingListService) Join(ctx context.Context, customerID uint, partySize int, requestedAt time.Time) (*JoinResult, error) {
	if err := validatePartySize(partySize); err != nil {
		return nil, err
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, customerLookupError(customerID, err)
	}
	if requestedAt.IsZero() {
		requestedAt = s.now()
	}

	var result *JoinResult
	err := s.tracker.Serialize(func() error {
		active, err := s.entries.FindActiveByCustomer(ctx, customerID)
		if err == nil {
			result = &JoinResult{Outcome: JoinDuplicate, Entry: active}
			return fmt.Errorf("customer %d already holds %s: %w", customerID, active.Code, ErrDuplicateActive)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		table, err := s.tracker.FindFit(ctx, partySize)
		if err != nil {
			return err
		}
		code, err := s.codes.Next(ctx)
		if err != nil {
			return err
		}
		entry := &models.WaitingEntry{
			CustomerID:  customerID,
			RequestedAt: requestedAt,
			PartySize:   partySize,
			Status:      models.WaitingQueued,
			Code:        code,
		}

		if table == nil {
			if err := s.entries.Create(ctx, entry); err != nil {
				return err
			}
			result = &JoinResult{Outcome: JoinWaiting, Entry: entry}
			return nil
		}

		entry.Status = models.WaitingFulfilled
		entry.TableID = &table.ID
		if err := s.entries.Create(ctx, entry); err != nil {
			return err
		}
		if _, err := s.tracker.Allocate(ctx, table.ID, models.TableReserved); err != nil {
			s.discard(ctx, entry)
			return err
		}
		reservation, err := s.admitter.Admit(ctx, entry, *table)
		if err != nil {
			s.tracker.Revert(ctx, table.ID, models.TableAvailable)
			s.discard(ctx, entry)
			return err
		}
		result = &JoinResult{Outcome: JoinImmediate, Entry: entry, Reservation: reservation}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateActive) {
			metrics.WaitingJoins.WithLabelValues("duplicate").Inc()
			return result, err
		}
		return nil, err
	}

	metrics.WaitingJoins.WithLabelValues(strings.ToLower(string(result.Outcome))).Inc()
	s.publish(result.Entry)
	utils.InfoLogger.WithFields(logrus.Fields{
		"code":       result.Entry.Code,
		"party_size": partySize,
		"result":     result.String(),
	}).Info("waiting list join")
	return result, nil
}

// OnVacancy offers a freed table to the best waiting party. It runs inside
// the floor lock, called by the tracker after the table became AVAILABLE.
func (s *WaitingListService) OnVacancy(ctx context.Context, table models.Table) error {
	candidates, err := s.entries.ListWaiting(ctx, table.Capacity)
	if err != nil {
		return err
	}
	entry := SelectForVacancy(candidates, table.Capacity)
	if entry == nil {
		metrics.VacancyMatches.WithLabelValues("none").Inc()
		return nil
	}

	if _, err := s.tracker.Allocate(ctx, table.ID, models.TableReserved); err != nil {
		return err
	}

	now := s.now()
	expires := now.Add(s.offerWindow)
	entry.Status = models.WaitingNotified
	entry.TableID = &table.ID
	entry.NotifiedAt = &now
	entry.OfferExpiresAt = &expires
	if err := s.entries.Update(ctx, entry); err != nil {
		s.tracker.Revert(ctx, table.ID, models.TableAvailable)
		return err
	}

	metrics.VacancyMatches.WithLabelValues("matched").Inc()
	s.publish(entry)
	utils.InfoLogger.WithFields(logrus.Fields{
		"code":       entry.Code,
		"table_id":   table.ID,
		"party_size": entry.PartySize,
	}).Info("table offered to waiting party")

	if s.notifier != nil {
		s.notifier.Enqueue(Notice{
			CustomerID: entry.CustomerID,
			Subject:    "Your table is ready",
			Message: fmt.Sprintf("Table %d is being held for your party of %d until %s. Confirm with code %s.",
				table.ID, entry.PartySize, expires.Format("15:04"), entry.Code),
		})
	}
	return nil
}

type ConfirmResult struct {
	Entry       *models.WaitingEntry
	Reservation *models.Reservation
}

// Confirm accepts an open table offer and books the held table.
func (s *WaitingListService) Confirm(ctx context.Context, code string) (*ConfirmResult, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	var (
		result  *ConfirmResult
		expired bool
		renewed *models.WaitingEntry
	)
	err = s.tracker.Serialize(func() error {
		entry, err := s.entries.GetByCode(ctx, code)
		if err != nil {
			return codeLookupError(code, err)
		}
		if entry.Status != models.WaitingNotified || entry.TableID == nil {
			return userErr(ErrInvalidState, "waiting entry %s has no open table offer", code)
		}
		if entry.OfferExpiresAt != nil && !s.now().Before(*entry.OfferExpiresAt) {
			if err := s.expire(ctx, entry); err != nil {
				return err
			}
			expired = true
			// The freed table may go straight back to this entry.
			if again, err := s.entries.GetByCode(ctx, code); err == nil && again.Status == models.WaitingNotified {
				renewed = again
			}
			return nil
		}

		table, err := s.tracker.Get(ctx, *entry.TableID)
		if err != nil {
			return err
		}

		prev := *entry
		entry.Status = models.WaitingFulfilled
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		reservation, err := s.admitter.Admit(ctx, entry, *table)
		if err != nil {
			s.restore(ctx, &prev)
			return err
		}
		result = &ConfirmResult{Entry: entry, Reservation: reservation}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if renewed != nil && renewed.OfferExpiresAt != nil {
		return nil, userErr(ErrInvalidState, "the table offer for %s expired and was renewed until %s, confirm again",
			code, renewed.OfferExpiresAt.Format("2006-01-02 15:04"))
	}
	if expired {
		return nil, userErr(ErrInvalidState, "the table offer for %s has expired", code)
	}

	s.publish(result.Entry)
	utils.InfoLogger.Printf("Waiting entry %s confirmed table %d as reservation %s",
		code, *result.Reservation.TableID, result.Reservation.Code)
	return result, nil
}

// Leave cancels a WAITING or NOTIFIED entry. A held table goes back to the floor.
func (s *WaitingListService) Leave(ctx context.Context, code string) (*models.WaitingEntry, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	var left *models.WaitingEntry
	err = s.tracker.Serialize(func() error {
		entry, err := s.entries.GetByCode(ctx, code)
		if err != nil {
			return codeLookupError(code, err)
		}
		if !entry.Status.IsActive() {
			return userErr(ErrInvalidState, "waiting entry %s is already %s", code, strings.ToLower(string(entry.Status)))
		}

		prev := *entry
		entry.Status = models.WaitingCancelled
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		if prev.Status == models.WaitingNotified && prev.TableID != nil {
			if err := s.tracker.Release(ctx, *prev.TableID); err != nil {
				s.restore(ctx, &prev)
				return err
			}
		}
		left = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(left)
	utils.InfoLogger.Printf("Waiting entry %s left the list", code)
	return left, nil
}

// ExpireOffers returns NOTIFIED entries whose window has passed to WAITING
// and releases their tables, which may immediately be offered again.
func (s *WaitingListService) ExpireOffers(ctx context.Context) (int, error) {
	var (
		count int
		errs  []error
	)
	err := s.tracker.Serialize(func() error {
		entries, err := s.entries.ListExpiredOffers(ctx, s.now())
		if err != nil {
			return err
		}
		for i := range entries {
			if err := s.expire(ctx, &entries[i]); err != nil {
				errs = append(errs, fmt.Errorf("expire %s: %w", entries[i].Code, err))
				continue
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, errors.Join(errs...)
}

// expire requires the floor lock.
func (s *WaitingListService) expire(ctx context.Context, entry *models.WaitingEntry) error {
	if entry.TableID == nil {
		return userErr(ErrInvalidState, "waiting entry %s holds no table", entry.Code)
	}
	tableID := *entry.TableID

	prev := *entry
	entry.Status = models.WaitingQueued
	entry.TableID = nil
	entry.NotifiedAt = nil
	entry.OfferExpiresAt = nil
	if err := s.entries.Update(ctx, entry); err != nil {
		return err
	}
	metrics.OfferExpirations.Inc()
	s.publish(entry)
	utils.InfoLogger.WithFields(logrus.Fields{
		"code":     entry.Code,
		"table_id": tableID,
	}).Info("table offer expired")

	if err := s.tracker.Release(ctx, tableID); err != nil {
		s.restore(ctx, &prev)
		return err
	}
	return nil
}

func (s *WaitingListService) Get(ctx context.Context, code string) (*models.WaitingEntry, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.GetByCode(ctx, code)
	if err != nil {
		return nil, codeLookupError(code, err)
	}
	return entry, nil
}

func (s *WaitingListService) List(ctx context.Context) ([]models.WaitingEntry, error) {
	return s.entries.List(ctx)
}

func (s *WaitingListService) discard(ctx context.Context, entry *models.WaitingEntry) {
	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		utils.ErrorLogger.WithError(err).WithField("code", entry.Code).Error("failed to remove waiting entry")
	}
}

func (s *WaitingListService) restore(ctx context.Context, prev *models.WaitingEntry) {
	if err := s.entries.Update(ctx, prev); err != nil {
		utils.ErrorLogger.WithError(err).WithField("code", prev.Code).Error("failed to restore waiting entry")
	}
}

func (s *WaitingListService) publish(entry *models.WaitingEntry) {
	s.publisher.Publish(hub.Message{Event: hub.EventWaitingUpdate, Data: *entry})
}
