package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// ReservationRepo is the MySQL implementation of booking.Store.  Bookings of
// one vehicle are serialised by a row lock on the vehicle taken with
// SELECT ... FOR UPDATE.
type ReservationRepo struct{ DB *sql.DB }

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

var _ booking.Store = (*ReservationRepo)(nil)

const reservationCols = `id, user_id, vehicle_id, start_date, end_date, pickup_location, return_location,
	total_days, price_per_day, total_price, status, notes, admin_notes, created_at, updated_at, cancelled_at`

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r           model.Reservation
		notes       sql.NullString
		adminNotes  sql.NullString
		cancelledAt sql.NullTime
	)
	err := s.Scan(&r.ID, &r.UserID, &r.VehicleID, &r.StartDate, &r.EndDate, &r.PickupLocation, &r.ReturnLocation,
		&r.TotalDays, &r.PricePerDay, &r.TotalPrice, &r.Status, &notes, &adminNotes, &r.CreatedAt, &r.UpdatedAt, &cancelledAt)
	if err != nil {
		return model.Reservation{}, err
	}
	r.Notes = notes.String
	r.AdminNotes = adminNotes.String
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		r.CancelledAt = &t
	}
	r.StartDate = r.StartDate.UTC()
	r.EndDate = r.EndDate.UTC()
	return r, nil
}

func getReservation(ctx context.Context, q dbtx, id uint64) (model.Reservation, error) {
	r, err := scanReservation(q.QueryRowContext(ctx, "SELECT "+reservationCols+" FROM reservations WHERE id = ?", id))
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	return r, nil
}

func getReservationForUser(ctx context.Context, q dbtx, id, userID uint64) (model.Reservation, error) {
	r, err := scanReservation(q.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	return r, nil
}

// activeStatusArgs expands model.ActiveStatuses into placeholders and args.
func activeStatusArgs() (string, []any) {
	ph := make([]string, len(model.ActiveStatuses))
	args := make([]any, len(model.ActiveStatuses))
	for i, s := range model.ActiveStatuses {
		ph[i] = "?"
		args[i] = s
	}
	return strings.Join(ph, ", "), args
}

// countOverlapping counts active reservations on vehicleID intersecting
// [start, end).  Auto-increment ids start at 1, so excludeID 0 excludes
// nothing.
func countOverlapping(ctx context.Context, q dbtx, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	ph, args := activeStatusArgs()
	query := `SELECT COUNT(*) FROM reservations
		WHERE vehicle_id = ? AND status IN (` + ph + `) AND start_date < ? AND end_date > ? AND id <> ?`
	all := append([]any{vehicleID}, args...)
	all = append(all, end.UTC(), start.UTC(), excludeID)
	var n int
	if err := q.QueryRowContext(ctx, query, all...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ReservationRepo) Vehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	return getVehicle(ctx, r.DB, id)
}

func (r *ReservationRepo) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return getReservation(ctx, r.DB, id)
}

func (r *ReservationRepo) ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	return getReservationForUser(ctx, r.DB, id, userID)
}

func (r *ReservationRepo) CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	return countOverlapping(ctx, r.DB, vehicleID, start, end, excludeID)
}

// WithVehicleLock opens a transaction, locks the vehicle row and runs fn.
// Concurrent callers for the same vehicle block on the row lock until this
// transaction commits or rolls back.
func (r *ReservationRepo) WithVehicleLock(ctx context.Context, vehicleID uint64, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM vehicles WHERE id = ? FOR UPDATE", vehicleID).Scan(&locked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if err := fn(ctx, &reservationTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListReservations returns a page of reservations, newest first, and the
// total number of matches.
func (r *ReservationRepo) ListReservations(ctx context.Context, f booking.ListFilter) ([]model.Reservation, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + reservationCols + " FROM reservations" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Limit, f.Skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ReservationStats aggregates the reservations of userID in one query.
func (r *ReservationRepo) ReservationStats(ctx context.Context, userID uint64) (model.ReservationStats, error) {
	const q = `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status IN (?, ?, ?) THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status IN (?, ?) THEN total_price ELSE 0 END), 0)
		FROM reservations WHERE user_id = ?`
	var st model.ReservationStats
	var spent decimal.Decimal
	err := r.DB.QueryRowContext(ctx, q,
		model.StatusPending, model.StatusConfirmed, model.StatusInProgress,
		model.StatusCompleted,
		model.StatusCancelled,
		model.StatusCompleted, model.StatusInProgress,
		userID,
	).Scan(&st.Total, &st.Active, &st.Completed, &st.Cancelled, &spent)
	if err != nil {
		return model.ReservationStats{}, err
	}
	st.TotalSpent = spent.Round(2)
	return st, nil
}

// ReservationsWithoutInvoice returns up to limit reservations that have no
// invoice yet, oldest first.
func (r *ReservationRepo) ReservationsWithoutInvoice(ctx context.Context, limit int) ([]model.Reservation, error) {
	q := "SELECT " + prefixed("r.", reservationCols) + ` FROM reservations r
		LEFT JOIN invoices i ON i.reservation_id = r.id
		WHERE i.id IS NULL
		ORDER BY r.id ASC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// prefixed qualifies every column of a comma separated list with p.
func prefixed(p, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = p + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
