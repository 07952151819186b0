// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation event types.
const (
	EventReservationCreated       = "reservation.created"
	EventReservationCancelled     = "reservation.cancelled"
	EventReservationStatusChanged = "reservation.status_changed"
)

// ReservationEvent is published after a reservation change has committed.
// It carries enough of the reservation for downstream consumers to log or
// notify without querying the primary database.
type ReservationEvent struct {
	EventID        string          `json:"event_id"`
	Type           string          `json:"type"`
	ReservationID  uint64          `json:"reservation_id"`
	Folio          string          `json:"folio"`
	UserID         uint64          `json:"user_id"`
	VehicleID      uint64          `json:"vehicle_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	OccurredAt     string          `json:"occurred_at"`
}

// NewEventID returns a fresh identifier used as the AMQP message id.
func NewEventID() string { return uuid.NewString() }

// FormatTime renders timestamps the way events carry them.
func FormatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }
