package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// reservationTx is the booking.Tx handed to WithVehicleLock callbacks.
type reservationTx struct {
	tx *sql.Tx
}

var _ booking.Tx = (*reservationTx)(nil)

func (t *reservationTx) Vehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	return getVehicle(ctx, t.tx, id)
}

func (t *reservationTx) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return getReservation(ctx, t.tx, id)
}

func (t *reservationTx) ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	return getReservationForUser(ctx, t.tx, id, userID)
}

func (t *reservationTx) CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	return countOverlapping(ctx, t.tx, vehicleID, start, end, excludeID)
}

func (t *reservationTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, vehicle_id, start_date, end_date, pickup_location, return_location,
		total_days, price_per_day, total_price, status, notes, admin_notes, created_at, updated_at, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, r.UserID, r.VehicleID, r.StartDate.UTC(), r.EndDate.UTC(), r.PickupLocation, r.ReturnLocation,
		r.TotalDays, r.PricePerDay, r.TotalPrice, r.Status, r.Notes, r.AdminNotes, r.CreatedAt, r.UpdatedAt, nullTime(r.CancelledAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (t *reservationTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	return insertPayment(ctx, t.tx, p)
}

func (t *reservationTx) InsertInvoice(ctx context.Context, inv *model.Invoice) error {
	return insertInvoice(ctx, t.tx, inv)
}

func (t *reservationTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `UPDATE reservations SET start_date = ?, end_date = ?, pickup_location = ?, return_location = ?,
		total_days = ?, price_per_day = ?, total_price = ?, status = ?, notes = ?, admin_notes = ?,
		updated_at = ?, cancelled_at = ?
		WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, r.StartDate.UTC(), r.EndDate.UTC(), r.PickupLocation, r.ReturnLocation,
		r.TotalDays, r.PricePerDay, r.TotalPrice, r.Status, r.Notes, r.AdminNotes,
		r.UpdatedAt, nullTime(r.CancelledAt), r.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := getReservation(ctx, t.tx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t *reservationTx) SetVehicleStatus(ctx context.Context, vehicleID uint64, status string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "UPDATE vehicles SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC(), vehicleID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	var id uint64
	err = t.tx.QueryRowContext(ctx, "SELECT id FROM vehicles WHERE id = ?", vehicleID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
