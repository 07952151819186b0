package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is a time-bounded percentage discount.  StartDate and EndDate are
// calendar dates (UTC midnight) and both are inclusive.
type Promotion struct {
	ID              uint64          `json:"id"`
	Title           string          `json:"title"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	Active          bool            `json:"active"`
}

// InEffect reports whether p may be applied on the calendar day of today.
func (p Promotion) InEffect(today time.Time) bool {
	if !p.Active {
		return false
	}
	d := truncateDay(today)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
