package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation statuses.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ReservationStatuses is the fixed enumeration accepted from admins.
var ReservationStatuses = []string{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled}

// ActiveStatuses are the statuses that hold a vehicle for their date range.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusInProgress}

// ValidReservationStatus reports whether s belongs to ReservationStatuses.
func ValidReservationStatus(s string) bool {
	for _, v := range ReservationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsActiveStatus reports whether a reservation in status s blocks its range.
func IsActiveStatus(s string) bool {
	for _, v := range ActiveStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Reservation is a booking of one vehicle for [StartDate, EndDate).
//
// Fields:
//
//	TotalDays   – billed days, at least 1.
//	PricePerDay – vehicle rate captured when the price was computed.
//	TotalPrice  – PricePerDay × TotalDays minus any promotion discount.
//	CancelledAt – set only when Status becomes cancelled.
type Reservation struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement" json:"id"`                                         // reservations.id
	UserID         uint64          `gorm:"not null;index" json:"user_id"`                                              // reservations.user_id
	VehicleID      uint64          `gorm:"not null;index:idx_reservations_vehicle_range,priority:1" json:"vehicle_id"` // reservations.vehicle_id
	StartDate      time.Time       `gorm:"not null;index:idx_reservations_vehicle_range,priority:2" json:"start_date"` // reservations.start_date
	EndDate        time.Time       `gorm:"not null;index:idx_reservations_vehicle_range,priority:3" json:"end_date"`   // reservations.end_date
	PickupLocation string          `gorm:"size:200;not null" json:"pickup_location"`                                   // reservations.pickup_location
	ReturnLocation string          `gorm:"size:200;not null" json:"return_location"`                                   // reservations.return_location
	TotalDays      int             `gorm:"not null" json:"total_days"`                                                 // reservations.total_days
	PricePerDay    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_per_day"`                           // reservations.price_per_day
	TotalPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`                             // reservations.total_price
	Status         string          `gorm:"size:20;not null;default:pending;index" json:"status"`                       // reservations.status
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`                                           // reservations.notes
	AdminNotes     string          `gorm:"type:text" json:"admin_notes,omitempty"`                                     // reservations.admin_notes
	CreatedAt      time.Time       `json:"created_at"`                                                                 // reservations.created_at
	UpdatedAt      time.Time       `json:"updated_at"`                                                                 // reservations.updated_at
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`                                                     // reservations.cancelled_at (nullable)
}

// ReservationDetail is a reservation together with the records it owns or
// references, as returned to clients.
type ReservationDetail struct {
	Reservation
	Vehicle      *VehicleSummary `json:"vehicle,omitempty"`
	Invoice      *InvoiceSummary `json:"invoice,omitempty"`
	Payment      *PaymentSummary `json:"payment,omitempty"`
	RefundStatus string          `json:"refund_status,omitempty"`
}

// ReservationStats aggregates a user's reservations.
type ReservationStats struct {
	Total      int             `json:"total"`
	Active     int             `json:"active"`
	Completed  int             `json:"completed"`
	Cancelled  int             `json:"cancelled"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}
