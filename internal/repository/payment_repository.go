package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

const paymentCols = `id, reservation_id, user_id, method, amount, currency, status, reference, details, created_at, updated_at`

func scanPayment(s rowScanner) (model.Payment, error) {
	var (
		p         model.Payment
		reference sql.NullString
		details   sql.NullString
	)
	err := s.Scan(&p.ID, &p.ReservationID, &p.UserID, &p.Method, &p.Amount, &p.Currency, &p.Status,
		&reference, &details, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Payment{}, err
	}
	p.Reference = reference.String
	p.Details = details.String
	return p, nil
}

func insertPayment(ctx context.Context, q dbtx, p *model.Payment) error {
	const stmt = `INSERT INTO payments (reservation_id, user_id, method, amount, currency, status, reference, details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, p.ReservationID, p.UserID, p.Method, p.Amount, p.Currency, p.Status,
		p.Reference, p.Details, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return booking.Conflict("reservation already has a payment")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Payment returns the payment of a reservation.
func (r *ReservationRepo) Payment(ctx context.Context, reservationID uint64) (model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE reservation_id = ?", reservationID))
	if err != nil {
		return model.Payment{}, notFound(err)
	}
	return p, nil
}

// PaymentsFor loads the payments of several reservations in one query.
// Reservations without a payment are absent from the map.
func (r *ReservationRepo) PaymentsFor(ctx context.Context, reservationIDs []uint64) (map[uint64]model.Payment, error) {
	out := make(map[uint64]model.Payment, len(reservationIDs))
	if len(reservationIDs) == 0 {
		return out, nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(reservationIDs)), ",")
	args := make([]any, len(reservationIDs))
	for i, id := range reservationIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT "+paymentCols+" FROM payments WHERE reservation_id IN ("+ph+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out[p.ReservationID] = p
	}
	return out, rows.Err()
}

// UpdatePayment writes the status and reference of p.
func (r *ReservationRepo) UpdatePayment(ctx context.Context, p *model.Payment) error {
	const q = `UPDATE payments SET status = ?, reference = ?, updated_at = ? WHERE reservation_id = ?`
	res, err := r.DB.ExecContext(ctx, q, p.Status, p.Reference, p.UpdatedAt, p.ReservationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Payment(ctx, p.ReservationID); err != nil {
			return err
		}
	}
	return nil
}
