package services

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const SubscriberDiscountRate = 0.10

// PriceSource supplies the pre-discount amount owed for a reservation.
type PriceSource interface {
	Subtotal(ctx context.Context, reservation *models.Reservation) (float64, error)
}

// CoverChargePricing bills a flat amount per guest.
type CoverChargePricing struct {
	PerGuest float64
}

func (p CoverChargePricing) Subtotal(_ context.Context, reservation *models.Reservation) (float64, error) {
	return utils.RoundCents(p.PerGuest * float64(reservation.PartySize)), nil
}

type Bill struct {
	Code         string      `json:"code"`
	Subtotal     float64     `json:"subtotal"`
	DiscountRate float64     `json:"discount_rate"`
	Discount     float64     `json:"discount"`
	Total        float64     `json:"total"`
	CustomerRole models.Role `json:"customer_role"`
}

// ComputeBill applies the subscriber discount and rounds every amount to cents.
func ComputeBill(code string, subtotal float64, role models.Role) Bill {
	rate := 0.0
	if role == models.RoleSubscriber {
		rate = SubscriberDiscountRate
	}
	subtotal = utils.RoundCents(subtotal)
	discount := utils.RoundCents(subtotal * rate)
	return Bill{
		Code:         code,
		Subtotal:     subtotal,
		DiscountRate: rate,
		Discount:     discount,
		Total:        utils.RoundCents(subtotal - discount),
		CustomerRole: role,
	}
}
