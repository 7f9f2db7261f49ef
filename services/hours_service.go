package services

import (
	"context"
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
)

const clockLayout = "15:04"

// HoursService manages the weekly opening hours and answers whether a slot
// can be booked. A weekday without a row is open all day.
type HoursService struct {
	hours    HoursStore
	location *time.Location
}

func NewHoursService(hours HoursStore, location *time.Location) *HoursService {
	if location == nil {
		location = time.Local
	}
	return &HoursService{hours: hours, location: location}
}

func (s *HoursService) List(ctx context.Context) ([]models.OpeningHours, error) {
	return s.hours.List(ctx)
}

func (s *HoursService) Set(ctx context.Context, weekday int, opens, closes string, closed bool) (*models.OpeningHours, error) {
	if weekday < 0 || weekday > 6 {
		return nil, userErr(ErrValidation, "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !closed {
		o, err := parseClock(opens)
		if err != nil {
			return nil, err
		}
		c, err := parseClock(closes)
		if err != nil {
			return nil, err
		}
		if o == c {
			return nil, userErr(ErrValidation, "opening and closing time must differ")
		}
	}

	hours := &models.OpeningHours{
		Weekday: weekday,
		Opens:   opens,
		Closes:  closes,
		Closed:  closed,
	}
	if err := s.hours.Upsert(ctx, hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// IsOpen reports whether slot falls inside the hours of its weekday. Hours
// whose closing time is earlier than the opening time run past midnight.
func (s *HoursService) IsOpen(ctx context.Context, slot time.Time) (bool, error) {
	local := slot.In(s.location)
	hours, err := s.hours.GetByWeekday(ctx, int(local.Weekday()))
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if hours.Closed {
		return false, nil
	}

	opens, err := parseClock(hours.Opens)
	if err != nil {
		return false, err
	}
	closes, err := parseClock(hours.Closes)
	if err != nil {
		return false, err
	}

	minute := local.Hour()*60 + local.Minute()
	if opens < closes {
		return minute >= opens && minute < closes, nil
	}
	return minute >= opens || minute < closes, nil
}

// parseClock returns minutes since midnight.
func parseClock(value string) (int, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, userErr(ErrValidation, "time %q must be HH:MM", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}
