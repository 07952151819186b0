package booking

import (
	"context"
	"time"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

// Querier holds the lookups shared by a Store and a locked Tx.  Missing rows
// are reported as ErrNotFound.
type Querier interface {
	Vehicle(ctx context.Context, id uint64) (model.Vehicle, error)
	Reservation(ctx context.Context, id uint64) (model.Reservation, error)
	// ReservationForUser applies ownership in the lookup itself; a row owned
	// by another user is indistinguishable from a missing one.
	ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error)
	// CountOverlapping counts reservations on vehicleID in an active status
	// whose range intersects [start, end).  excludeID, when non-zero, is left
	// out of the count.
	CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error)
}

// Tx is the write side available while a vehicle is locked.  Everything done
// through a Tx commits or rolls back together.
type Tx interface {
	Querier
	InsertReservation(ctx context.Context, r *model.Reservation) error
	InsertPayment(ctx context.Context, p *model.Payment) error
	InsertInvoice(ctx context.Context, inv *model.Invoice) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	// SetVehicleStatus returns false when the vehicle does not exist.
	SetVehicleStatus(ctx context.Context, vehicleID uint64, status string) (bool, error)
}

// Store is the persistence boundary of the booking engine.  The MySQL and
// MongoDB adapters implement it interchangeably.
type Store interface {
	Querier

	// WithVehicleLock runs fn while holding an exclusive per-vehicle lock
	// inside a single transaction.  The transaction commits when fn returns
	// nil and rolls back otherwise.  A missing vehicle does not fail the
	// lock; fn is expected to look it up.
	WithVehicleLock(ctx context.Context, vehicleID uint64, fn func(ctx context.Context, tx Tx) error) error

	ListReservations(ctx context.Context, f ListFilter) ([]model.Reservation, int, error)
	ReservationStats(ctx context.Context, userID uint64) (model.ReservationStats, error)

	Payment(ctx context.Context, reservationID uint64) (model.Payment, error)
	PaymentsFor(ctx context.Context, reservationIDs []uint64) (map[uint64]model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error

	Invoice(ctx context.Context, reservationID uint64) (model.Invoice, error)
	InsertInvoice(ctx context.Context, inv *model.Invoice) error
	ReservationsWithoutInvoice(ctx context.Context, limit int) ([]model.Reservation, error)
}

// ListFilter narrows ListReservations.  UserID zero lists every user.
type ListFilter struct {
	UserID uint64
	Status string
	Skip   int
	Limit  int
}

// PromotionLookup resolves promotions by id.
type PromotionLookup interface {
	Get(id uint64) (model.Promotion, bool)
}

// Principal is the authenticated caller as established by the identity
// layer.
type Principal struct {
	UserID uint64
	Role   string
}

// IsAdmin reports whether p carries the admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }
