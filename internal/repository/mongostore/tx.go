package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// storeTx runs on the session context handed out by WithTransaction, so every
// call below joins the surrounding transaction.
type storeTx struct {
	s *Store
}

var _ booking.Tx = (*storeTx)(nil)

func (t *storeTx) Vehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	return t.s.Vehicle(ctx, id)
}

func (t *storeTx) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return t.s.Reservation(ctx, id)
}

func (t *storeTx) ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	return t.s.ReservationForUser(ctx, id, userID)
}

func (t *storeTx) CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	return t.s.CountOverlapping(ctx, vehicleID, start, end, excludeID)
}

func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	id, err := t.s.nextID(ctx, colReservations)
	if err != nil {
		return err
	}
	r.ID = id
	_, err = t.s.db.Collection(colReservations).InsertOne(ctx, newReservationDoc(*r))
	return err
}

func (t *storeTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	id, err := t.s.nextID(ctx, colPayments)
	if err != nil {
		return err
	}
	p.ID = id
	if _, err := t.s.db.Collection(colPayments).InsertOne(ctx, newPaymentDoc(*p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return booking.Conflict("reservation already has a payment")
		}
		return err
	}
	return nil
}

func (t *storeTx) InsertInvoice(ctx context.Context, inv *model.Invoice) error {
	return t.s.insertInvoice(ctx, inv)
}

func (t *storeTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	doc := newReservationDoc(*r)
	res, err := t.s.db.Collection(colReservations).ReplaceOne(ctx, bson.M{"_id": r.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *storeTx) SetVehicleStatus(ctx context.Context, vehicleID uint64, status string) (bool, error) {
	res, err := t.s.db.Collection(colVehicles).UpdateOne(ctx,
		bson.M{"_id": vehicleID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
