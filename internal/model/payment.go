package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods.
const (
	MethodCash    = "cash"
	MethodCard    = "card"
	MethodCheck   = "check"
	MethodDeposit = "deposit"
)

// Payment statuses.  A payment is recorded as accepted at booking time; the
// remaining values are set by admins while handling refunds.
const (
	PaymentAccepted   = "accepted"
	PaymentPending    = "pending"
	PaymentRejected   = "rejected"
	PaymentRefunded   = "refunded"
	PaymentReimbursed = "reimbursed"
)

// PaymentStatuses is the set of statuses an admin may assign.
var PaymentStatuses = []string{PaymentAccepted, PaymentPending, PaymentRejected, PaymentRefunded, PaymentReimbursed}

var methodAliases = map[string]string{
	MethodCash:    MethodCash,
	MethodCard:    MethodCard,
	MethodCheck:   MethodCheck,
	MethodDeposit: MethodDeposit,
	"efectivo":    MethodCash,
	"tarjeta":     MethodCard,
	"cheque":      MethodCheck,
	"deposito":    MethodDeposit,
	"depósito":    MethodDeposit,
}

// NormalizePaymentMethod maps raw input to a payment method.  Empty input
// defaults to cash; unknown input returns ok=false.
func NormalizePaymentMethod(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return MethodCash, true
	}
	m, ok := methodAliases[s]
	return m, ok
}

// ValidPaymentStatus reports whether s belongs to PaymentStatuses.
func ValidPaymentStatus(s string) bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Payment records how a reservation was paid.  There is exactly one payment
// per reservation.
type Payment struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`         // payments.id
	ReservationID uint64          `gorm:"not null;uniqueIndex" json:"reservation_id"` // payments.reservation_id
	UserID        uint64          `gorm:"not null;index" json:"user_id"`              // payments.user_id
	Method        string          `gorm:"size:20;not null" json:"method"`             // payments.method
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`  // payments.amount
	Currency      string          `gorm:"size:3;not null" json:"currency"`            // payments.currency
	Status        string          `gorm:"size:20;not null" json:"status"`             // payments.status
	Reference     string          `gorm:"size:120" json:"reference,omitempty"`        // payments.reference
	Details       string          `gorm:"type:text" json:"details,omitempty"`         // payments.details
	CreatedAt     time.Time       `json:"created_at"`                                 // payments.created_at
	UpdatedAt     time.Time       `json:"updated_at"`                                 // payments.updated_at
}

// PaymentSummary is the view of a payment embedded into reservation
// responses.
type PaymentSummary struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Reference string          `json:"reference,omitempty"`
}

// Summary builds the PaymentSummary view of p.
func (p Payment) Summary() PaymentSummary {
	return PaymentSummary{Method: p.Method, Amount: p.Amount, Currency: p.Currency, Status: p.Status, Reference: p.Reference}
}

// Refund states reported for admin listings.
const (
	RefundNotApplicable = "not_applicable"
	RefundPending       = "pending"
	RefundDone          = "refunded"
)

// RefundStatus infers whether money is owed back for a reservation.  A
// cancelled reservation whose payment is still accepted is waiting on a
// refund.
func RefundStatus(reservationStatus string, p *Payment) string {
	if p == nil {
		return RefundNotApplicable
	}
	switch p.Status {
	case PaymentRefunded, PaymentReimbursed:
		return RefundDone
	}
	if reservationStatus == StatusCancelled && p.Status == PaymentAccepted {
		return RefundPending
	}
	return RefundNotApplicable
}
