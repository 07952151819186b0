package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle operational statuses.  The status is informational for admins; the
// overlap check on reservations is what prevents double-booking.
const (
	VehicleAvailable   = "available"
	VehicleReserved    = "reserved"
	VehicleInUse       = "in_use"
	VehicleMaintenance = "maintenance"
	VehicleUnavailable = "unavailable"
)

// VehicleStatuses lists every status an admin may assign to a vehicle.
var VehicleStatuses = []string{VehicleAvailable, VehicleReserved, VehicleInUse, VehicleMaintenance, VehicleUnavailable}

// ValidVehicleStatus reports whether s belongs to VehicleStatuses.
func ValidVehicleStatus(s string) bool {
	for _, v := range VehicleStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Vehicle is a rentable resource in the catalog.  Rows are soft-deleted via
// IsActive and are never removed while reservations reference them.
//
// Fields:
//
//	PricePerDay  – daily rate used to price reservations (DECIMAL(10,2)).
//	PricePerHour – optional hourly rate shown in the catalog only.
//	Status       – one of VehicleStatuses.
//	IsActive     – false hides the vehicle and makes it unbookable.
type Vehicle struct {
	ID           uint64           `gorm:"primaryKey;autoIncrement" json:"id"`                 // vehicles.id
	Brand        string           `gorm:"size:80;not null" json:"brand"`                      // vehicles.brand
	Model        string           `gorm:"size:80;not null" json:"model"`                      // vehicles.model
	Year         int              `gorm:"not null" json:"year"`                               // vehicles.year
	VehicleType  string           `gorm:"size:40;not null;index" json:"vehicle_type"`         // vehicles.vehicle_type
	Capacity     int              `gorm:"not null" json:"capacity"`                           // vehicles.capacity
	Plate        string           `gorm:"size:20;uniqueIndex" json:"plate"`                   // vehicles.plate
	Color        string           `gorm:"size:40" json:"color,omitempty"`                     // vehicles.color
	PricePerDay  decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price_per_day"`   // vehicles.price_per_day
	PricePerHour *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price_per_hour,omitempty"` // vehicles.price_per_hour (nullable)
	Description  string           `gorm:"type:text" json:"description,omitempty"`             // vehicles.description
	ImageURL     string           `gorm:"size:500" json:"image_url,omitempty"`                // vehicles.image_url
	Status       string           `gorm:"size:20;not null;default:available" json:"status"`   // vehicles.status
	IsActive     bool             `gorm:"not null;default:true" json:"is_active"`             // vehicles.is_active
	CreatedAt    time.Time        `json:"created_at"`                                         // vehicles.created_at
	UpdatedAt    time.Time        `json:"updated_at"`                                         // vehicles.updated_at
}

// VehicleSummary is the slice of a vehicle embedded into reservation
// responses.
type VehicleSummary struct {
	ID          uint64          `json:"id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        int             `json:"year"`
	VehicleType string          `json:"vehicle_type"`
	Plate       string          `json:"plate"`
	ImageURL    string          `json:"image_url,omitempty"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
}

// Summary builds the VehicleSummary view of v.
func (v Vehicle) Summary() VehicleSummary {
	return VehicleSummary{
		ID:          v.ID,
		Brand:       v.Brand,
		Model:       v.Model,
		Year:        v.Year,
		VehicleType: v.VehicleType,
		Plate:       v.Plate,
		ImageURL:    v.ImageURL,
		PricePerDay: v.PricePerDay,
	}
}
