// Package mongostore is the MongoDB implementation of the booking, catalog
// and support stores.  Bookings of one vehicle are serialised inside
// multi-document transactions by writing the vehicle's booking_locks
// document, so MongoDB must run as a replica set.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

const (
	colVehicles     = "vehicles"
	colReservations = "reservations"
	colPayments     = "payments"
	colInvoices     = "invoices"
	colTickets      = "support_tickets"
	colCounters     = "counters"
	colLocks        = "booking_locks"
)

// Store implements booking.Store, catalog.Store and the support ticket store
// on one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ booking.Store = (*Store)(nil)

// New binds a Store to the named database of client.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// EnsureIndexes creates the indexes the store relies on.  It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colVehicles: {
			{Keys: bson.D{{Key: "plate", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "price_per_day", Value: 1}}},
		},
		colReservations: {
			{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "start_date", Value: 1}, {Key: "end_date", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "reservation_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "reservation_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colTickets: {
			{Keys: bson.D{{Key: "reservation_id", Value: 1}}},
		},
	}
	for col, models := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// nextID allocates the next numeric id of a sequence.
func (s *Store) nextID(ctx context.Context, seq string) (uint64, error) {
	var out struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.db.Collection(colCounters).
		FindOneAndUpdate(ctx, bson.M{"_id": seq}, bson.M{"$inc": bson.M{"value": int64(1)}}, opts).
		Decode(&out)
	if err != nil {
		return 0, err
	}
	return uint64(out.Value), nil
}

// findOne decodes a single document into out, mapping ErrNoDocuments to
// booking.ErrNotFound.
func (s *Store) findOne(ctx context.Context, col string, filter any, out any) error {
	err := s.db.Collection(col).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return booking.ErrNotFound
	}
	return err
}

func (s *Store) Vehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	var d vehicleDoc
	if err := s.findOne(ctx, colVehicles, bson.M{"_id": id}, &d); err != nil {
		return model.Vehicle{}, err
	}
	return d.model(), nil
}

func (s *Store) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
	var d reservationDoc
	if err := s.findOne(ctx, colReservations, bson.M{"_id": id}, &d); err != nil {
		return model.Reservation{}, err
	}
	return d.model(), nil
}

func (s *Store) ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	var d reservationDoc
	if err := s.findOne(ctx, colReservations, bson.M{"_id": id, "user_id": userID}, &d); err != nil {
		return model.Reservation{}, err
	}
	return d.model(), nil
}

// overlapFilter matches active reservations of vehicleID intersecting
// [start, end).
func overlapFilter(vehicleID uint64, start, end time.Time, excludeID uint64) bson.M {
	f := bson.M{
		"vehicle_id": vehicleID,
		"status":     bson.M{"$in": model.ActiveStatuses},
		"start_date": bson.M{"$lt": end.UTC()},
		"end_date":   bson.M{"$gt": start.UTC()},
	}
	if excludeID != 0 {
		f["_id"] = bson.M{"$ne": excludeID}
	}
	return f
}

func (s *Store) CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	n, err := s.db.Collection(colReservations).CountDocuments(ctx, overlapFilter(vehicleID, start, end, excludeID))
	return int(n), err
}

// WithVehicleLock runs fn inside a transaction that first writes the
// vehicle's lock document.  Two transactions touching the same lock document
// conflict, and the driver retries the loser from the start, so fn observes
// the winner's committed writes.
func (s *Store) WithVehicleLock(ctx context.Context, vehicleID uint64, fn func(ctx context.Context, tx booking.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		_, err := s.db.Collection(colLocks).UpdateOne(sc,
			bson.M{"_id": vehicleID},
			bson.M{"$set": bson.M{"locked_at": time.Now().UTC()}, "$inc": bson.M{"version": int64(1)}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, err
		}
		return nil, fn(sc, &storeTx{s: s})
	})
	return err
}

// ListReservations returns a page of reservations, newest first, and the
// total number of matches.
func (s *Store) ListReservations(ctx context.Context, f booking.ListFilter) ([]model.Reservation, int, error) {
	filter := bson.M{}
	if f.UserID != 0 {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	col := s.db.Collection(colReservations)
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Skip)).
		SetLimit(int64(f.Limit))
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []reservationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]model.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, int(total), nil
}

// ReservationStats folds the reservations of userID into counts and the
// amount spent.
func (s *Store) ReservationStats(ctx context.Context, userID uint64) (model.ReservationStats, error) {
	opts := options.Find().SetProjection(bson.M{"status": 1, "total_price": 1})
	cur, err := s.db.Collection(colReservations).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return model.ReservationStats{}, err
	}
	defer cur.Close(ctx)

	var docs []reservationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return model.ReservationStats{}, err
	}
	rs := make([]model.Reservation, 0, len(docs))
	for _, d := range docs {
		rs = append(rs, d.model())
	}
	return foldStats(rs), nil
}

func foldStats(rs []model.Reservation) model.ReservationStats {
	var st model.ReservationStats
	for _, r := range rs {
		st.Total++
		switch {
		case model.IsActiveStatus(r.Status):
			st.Active++
		case r.Status == model.StatusCompleted:
			st.Completed++
		case r.Status == model.StatusCancelled:
			st.Cancelled++
		}
		if r.Status == model.StatusCompleted || r.Status == model.StatusInProgress {
			st.TotalSpent = st.TotalSpent.Add(r.TotalPrice)
		}
	}
	st.TotalSpent = st.TotalSpent.Round(2)
	return st
}

func (s *Store) Payment(ctx context.Context, reservationID uint64) (model.Payment, error) {
	var d paymentDoc
	if err := s.findOne(ctx, colPayments, bson.M{"reservation_id": reservationID}, &d); err != nil {
		return model.Payment{}, err
	}
	return d.model(), nil
}

func (s *Store) PaymentsFor(ctx context.Context, reservationIDs []uint64) (map[uint64]model.Payment, error) {
	out := make(map[uint64]model.Payment, len(reservationIDs))
	if len(reservationIDs) == 0 {
		return out, nil
	}
	cur, err := s.db.Collection(colPayments).Find(ctx, bson.M{"reservation_id": bson.M{"$in": reservationIDs}})
	if err != nil {
		return nil, err
	}
	var docs []paymentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ReservationID] = d.model()
	}
	return out, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p *model.Payment) error {
	res, err := s.db.Collection(colPayments).UpdateOne(ctx,
		bson.M{"reservation_id": p.ReservationID},
		bson.M{"$set": bson.M{"status": p.Status, "reference": p.Reference, "updated_at": p.UpdatedAt.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (s *Store) Invoice(ctx context.Context, reservationID uint64) (model.Invoice, error) {
	var d invoiceDoc
	if err := s.findOne(ctx, colInvoices, bson.M{"reservation_id": reservationID}, &d); err != nil {
		return model.Invoice{}, err
	}
	return d.model(), nil
}

func (s *Store) InsertInvoice(ctx context.Context, inv *model.Invoice) error {
	return s.insertInvoice(ctx, inv)
}

func (s *Store) insertInvoice(ctx context.Context, inv *model.Invoice) error {
	id, err := s.nextID(ctx, colInvoices)
	if err != nil {
		return err
	}
	inv.ID = id
	if _, err := s.db.Collection(colInvoices).InsertOne(ctx, newInvoiceDoc(*inv)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return booking.Conflict("reservation already has an invoice")
		}
		return err
	}
	return nil
}

// ReservationsWithoutInvoice returns up to limit reservations that have no
// invoice yet, oldest first.
func (s *Store) ReservationsWithoutInvoice(ctx context.Context, limit int) ([]model.Reservation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         colInvoices,
			"localField":   "_id",
			"foreignField": "reservation_id",
			"as":           "invoice",
		}}},
		{{Key: "$match", Value: bson.M{"invoice": bson.M{"$size": 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$project", Value: bson.M{"invoice": 0}}},
	}
	cur, err := s.db.Collection(colReservations).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []reservationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
