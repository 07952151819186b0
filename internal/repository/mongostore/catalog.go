package mongostore

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/catalog"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

var _ catalog.Store = (*Store)(nil)

func vehicleFilter(f catalog.Filter) bson.M {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["is_active"] = true
	}
	if f.VehicleType != "" {
		filter["vehicle_type"] = strings.ToLower(f.VehicleType)
	}
	if f.MinCapacity > 0 {
		filter["capacity"] = bson.M{"$gte": f.MinCapacity}
	}
	if f.MaxPrice != nil {
		filter["price_per_day"] = bson.M{"$lte": toDecimal128(*f.MaxPrice)}
	}
	if f.OnlyAvailable {
		filter["status"] = model.VehicleAvailable
	}
	return filter
}

func (s *Store) ListVehicles(ctx context.Context, f catalog.Filter) ([]model.Vehicle, int, error) {
	filter := vehicleFilter(f)
	col := s.db.Collection(colVehicles)
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "price_per_day", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Skip)).
		SetLimit(int64(f.Limit))
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []vehicleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]model.Vehicle, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, int(total), nil
}

func (s *Store) VehicleTypes(ctx context.Context) ([]string, error) {
	raw, err := s.db.Collection(colVehicles).Distinct(ctx, "vehicle_type", bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if t, ok := v.(string); ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) InsertVehicle(ctx context.Context, v *model.Vehicle) error {
	id, err := s.nextID(ctx, colVehicles)
	if err != nil {
		return err
	}
	v.ID = id
	if _, err := s.db.Collection(colVehicles).InsertOne(ctx, newVehicleDoc(*v)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return booking.Conflict("a vehicle with this plate already exists")
		}
		return err
	}
	return nil
}

func (s *Store) UpdateVehicle(ctx context.Context, v *model.Vehicle) error {
	res, err := s.db.Collection(colVehicles).UpdateOne(ctx,
		bson.M{"_id": v.ID},
		bson.M{"$set": bson.M{
			"status":        v.Status,
			"is_active":     v.IsActive,
			"price_per_day": toDecimal128(v.PricePerDay),
			"updated_at":    v.UpdatedAt.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return booking.ErrNotFound
	}
	return nil
}
