package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Quote is the outcome of pricing a date range for a vehicle.
type Quote struct {
	TotalDays   int
	PricePerDay decimal.Decimal
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	TotalPrice  decimal.Decimal
	// PromotionNote is empty when no promotion applied.
	PromotionNote string
}

// TotalDays returns the number of whole days billed for [start, end).  Any
// stay shorter than a full day bills one day; partial days are dropped.
func TotalDays(start, end time.Time) int {
	days := int(end.Sub(start) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

// roundHalfUp rounds a non-negative amount to cents, .xx5 going up.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputePrice prices v for [start, end).  promo may be nil.  A supplied
// promotion must be in effect on today's calendar date.
func ComputePrice(v model.Vehicle, start, end time.Time, promo *model.Promotion, today time.Time) (Quote, error) {
	q := Quote{
		TotalDays:   TotalDays(start, end),
		PricePerDay: v.PricePerDay,
	}
	q.Subtotal = roundHalfUp(q.PricePerDay.Mul(decimal.NewFromInt(int64(q.TotalDays))))
	q.Discount = decimal.Zero
	q.TotalPrice = q.Subtotal

	if promo == nil {
		return q, nil
	}
	if !promo.InEffect(today) {
		return Quote{}, Validation("promotion is not in effect")
	}
	q.Discount = roundHalfUp(q.Subtotal.Mul(promo.DiscountPercent).Div(hundred))
	q.TotalPrice = roundHalfUp(q.Subtotal.Sub(q.Discount))
	if q.TotalPrice.IsNegative() {
		q.TotalPrice = decimal.Zero
	}
	q.PromotionNote = fmt.Sprintf("Promotion applied: %s (%s%% OFF)", promo.Title, promo.DiscountPercent.String())
	return q, nil
}

// appendNote joins free-text notes with " | ".
func appendNote(notes, extra string) string {
	if extra == "" {
		return notes
	}
	if notes == "" {
		return extra
	}
	return notes + " | " + extra
}
