package repository

import (
	"context"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

const invoiceCols = `id, reservation_id, folio, invoice_number, amount, currency, status, issued_at`

func scanInvoice(s rowScanner) (model.Invoice, error) {
	var inv model.Invoice
	err := s.Scan(&inv.ID, &inv.ReservationID, &inv.Folio, &inv.InvoiceNumber, &inv.Amount, &inv.Currency, &inv.Status, &inv.IssuedAt)
	if err != nil {
		return model.Invoice{}, err
	}
	inv.IssuedAt = inv.IssuedAt.UTC()
	return inv, nil
}

func insertInvoice(ctx context.Context, q dbtx, inv *model.Invoice) error {
	const stmt = `INSERT INTO invoices (reservation_id, folio, invoice_number, amount, currency, status, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, inv.ReservationID, inv.Folio, inv.InvoiceNumber, inv.Amount, inv.Currency, inv.Status, inv.IssuedAt)
	if err != nil {
		if isDuplicate(err) {
			return booking.Conflict("reservation already has an invoice")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// Invoice returns the invoice of a reservation.
func (r *ReservationRepo) Invoice(ctx context.Context, reservationID uint64) (model.Invoice, error) {
	inv, err := scanInvoice(r.DB.QueryRowContext(ctx,
		"SELECT "+invoiceCols+" FROM invoices WHERE reservation_id = ?", reservationID))
	if err != nil {
		return model.Invoice{}, notFound(err)
	}
	return inv, nil
}

// InsertInvoice stores an invoice outside of any booking transaction.  The
// unique index on reservation_id turns a concurrent second insert into a
// conflict.
func (r *ReservationRepo) InsertInvoice(ctx context.Context, inv *model.Invoice) error {
	return insertInvoice(ctx, r.DB, inv)
}
