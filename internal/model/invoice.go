package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceGenerated is the status of a freshly issued invoice.
const InvoiceGenerated = "generated"

// Invoice is the billing record of a reservation.  Folio and InvoiceNumber
// are derived from the reservation id and the issue date and never change
// once issued.
type Invoice struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`                 // invoices.id
	ReservationID uint64          `gorm:"not null;uniqueIndex" json:"reservation_id"`         // invoices.reservation_id
	Folio         string          `gorm:"size:20;not null;index" json:"folio"`                // invoices.folio
	InvoiceNumber string          `gorm:"size:32;not null;uniqueIndex" json:"invoice_number"` // invoices.invoice_number
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`          // invoices.amount
	Currency      string          `gorm:"size:3;not null" json:"currency"`                    // invoices.currency
	Status        string          `gorm:"size:20;not null" json:"status"`                     // invoices.status
	IssuedAt      time.Time       `gorm:"not null" json:"issued_at"`                          // invoices.issued_at
}

// InvoiceSummary is the view of an invoice embedded into reservation
// responses.
type InvoiceSummary struct {
	Folio         string          `json:"folio"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`
}

// Summary builds the InvoiceSummary view of inv.
func (inv Invoice) Summary() InvoiceSummary {
	return InvoiceSummary{
		Folio:         inv.Folio,
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		Status:        inv.Status,
		IssuedAt:      inv.IssuedAt,
	}
}

// Folio formats the human-readable reference of a reservation, e.g. VT-0001.
func Folio(reservationID uint64) string {
	return fmt.Sprintf("VT-%04d", reservationID)
}

// InvoiceNumber formats the invoice number for a reservation issued at t,
// e.g. FAC-20240601-000001.
func InvoiceNumber(reservationID uint64, issuedAt time.Time) string {
	return fmt.Sprintf("FAC-%s-%06d", issuedAt.UTC().Format("20060102"), reservationID)
}

// NewInvoice builds the invoice for r issued at now.
func NewInvoice(r Reservation, currency string, now time.Time) Invoice {
	now = now.UTC()
	return Invoice{
		ReservationID: r.ID,
		Folio:         Folio(r.ID),
		InvoiceNumber: InvoiceNumber(r.ID, now),
		Amount:        r.TotalPrice,
		Currency:      currency,
		Status:        InvoiceGenerated,
		IssuedAt:      now,
	}
}
