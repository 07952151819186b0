package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

// SupportRepo stores support tickets.
type SupportRepo struct{ DB *sql.DB }

func NewSupportRepo(db *sql.DB) *SupportRepo { return &SupportRepo{DB: db} }

// InsertTicket stores t and sets its ID.
func (r *SupportRepo) InsertTicket(ctx context.Context, t *model.SupportTicket) error {
	const q = `INSERT INTO support_tickets (reservation_id, user_id, folio, issue_type, message,
		contact_name, contact_email, contact_phone, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var userID sql.NullInt64
	if t.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*t.UserID), Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, q, t.ReservationID, userID, t.Folio, t.IssueType, t.Message,
		t.ContactName, t.ContactEmail, t.ContactPhone, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
