// Package catalog serves the vehicle catalog: public browsing and the admin
// operations that maintain it.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// Filter narrows vehicle listings.  Zero values disable a criterion.
type Filter struct {
	VehicleType     string
	MinCapacity     int
	MaxPrice        *decimal.Decimal
	OnlyAvailable   bool
	IncludeInactive bool
	Skip            int
	Limit           int
}

// Store persists vehicles.  Missing rows are reported as booking.ErrNotFound.
type Store interface {
	ListVehicles(ctx context.Context, f Filter) ([]model.Vehicle, int, error)
	VehicleTypes(ctx context.Context) ([]string, error)
	Vehicle(ctx context.Context, id uint64) (model.Vehicle, error)
	InsertVehicle(ctx context.Context, v *model.Vehicle) error
	UpdateVehicle(ctx context.Context, v *model.Vehicle) error
}

// Service implements catalog use cases on top of a Store.
type Service struct {
	store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	if store == nil {
		panic("nil store passed to catalog.NewService")
	}
	return &Service{store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// List returns vehicles ordered by daily price, cheapest first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Vehicle, int, error) {
	f.VehicleType = strings.TrimSpace(f.VehicleType)
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = booking.DefaultListLimit
	}
	if f.Limit > booking.MaxListLimit {
		f.Limit = booking.MaxListLimit
	}
	if f.MinCapacity < 0 {
		return nil, 0, booking.Validation("min_capacity must not be negative")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return nil, 0, booking.Validation("max_price must not be negative")
	}
	return s.store.ListVehicles(ctx, f)
}

// Types returns the distinct vehicle types of active vehicles.
func (s *Service) Types(ctx context.Context) ([]string, error) {
	return s.store.VehicleTypes(ctx)
}

// Get returns a vehicle.  Inactive vehicles are hidden unless includeInactive
// is set.
func (s *Service) Get(ctx context.Context, id uint64, includeInactive bool) (model.Vehicle, error) {
	v, err := s.store.Vehicle(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return model.Vehicle{}, booking.NotFound("vehicle not found")
		}
		return model.Vehicle{}, err
	}
	if !v.IsActive && !includeInactive {
		return model.Vehicle{}, booking.NotFound("vehicle not found")
	}
	return v, nil
}

// NewVehicle is the admin input for adding a vehicle.
type NewVehicle struct {
	Brand        string
	Model        string
	Year         int
	VehicleType  string
	Capacity     int
	Plate        string
	Color        string
	PricePerDay  decimal.Decimal
	PricePerHour *decimal.Decimal
	Description  string
	ImageURL     string
	Status       string
}

// Create adds a vehicle to the catalog.
func (s *Service) Create(ctx context.Context, in NewVehicle) (model.Vehicle, error) {
	if strings.TrimSpace(in.Brand) == "" || strings.TrimSpace(in.Model) == "" {
		return model.Vehicle{}, booking.Validation("brand and model are required")
	}
	if strings.TrimSpace(in.VehicleType) == "" {
		return model.Vehicle{}, booking.Validation("vehicle_type is required")
	}
	if in.Capacity <= 0 {
		return model.Vehicle{}, booking.Validation("capacity must be positive")
	}
	if !in.PricePerDay.IsPositive() {
		return model.Vehicle{}, booking.Validation("price_per_day must be positive")
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = model.VehicleAvailable
	}
	if !model.ValidVehicleStatus(status) {
		return model.Vehicle{}, booking.Validation("invalid vehicle status")
	}
	now := s.Now()
	v := model.Vehicle{
		Brand:        strings.TrimSpace(in.Brand),
		Model:        strings.TrimSpace(in.Model),
		Year:         in.Year,
		VehicleType:  strings.ToLower(strings.TrimSpace(in.VehicleType)),
		Capacity:     in.Capacity,
		Plate:        strings.ToUpper(strings.TrimSpace(in.Plate)),
		Color:        strings.TrimSpace(in.Color),
		PricePerDay:  in.PricePerDay.Round(2),
		PricePerHour: in.PricePerHour,
		Description:  strings.TrimSpace(in.Description),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Status:       status,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertVehicle(ctx, &v); err != nil {
		return model.Vehicle{}, err
	}
	return v, nil
}

// Patch carries the admin-editable vehicle fields.  Nil fields are left
// unchanged.
type Patch struct {
	Status      *string
	IsActive    *bool
	PricePerDay *decimal.Decimal
}

// Update applies p to the vehicle.  Price changes do not affect existing
// reservations, which keep the rate captured when they were priced.
func (s *Service) Update(ctx context.Context, id uint64, p Patch) (model.Vehicle, error) {
	v, err := s.Get(ctx, id, true)
	if err != nil {
		return model.Vehicle{}, err
	}
	if p.Status != nil {
		st := strings.ToLower(strings.TrimSpace(*p.Status))
		if !model.ValidVehicleStatus(st) {
			return model.Vehicle{}, booking.Validation("invalid vehicle status")
		}
		v.Status = st
	}
	if p.IsActive != nil {
		v.IsActive = *p.IsActive
	}
	if p.PricePerDay != nil {
		if !p.PricePerDay.IsPositive() {
			return model.Vehicle{}, booking.Validation("price_per_day must be positive")
		}
		v.PricePerDay = p.PricePerDay.Round(2)
	}
	v.UpdatedAt = s.Now()
	if err := s.store.UpdateVehicle(ctx, &v); err != nil {
		return model.Vehicle{}, err
	}
	return v, nil
}
