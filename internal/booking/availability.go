package booking

import (
	"context"
	"errors"
	"time"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// IsAvailable reports whether vehicleID can be booked for [start, end).  It
// fails closed: a missing or inactive vehicle is never available.  The check
// takes no lock; Create and Update repeat it under the vehicle lock.
func IsAvailable(ctx context.Context, q Querier, vehicleID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	v, err := q.Vehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !v.IsActive {
		return false, nil
	}
	n, err := q.CountOverlapping(ctx, vehicleID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Availability is the answer returned by the public availability endpoint.
type Availability struct {
	VehicleID uint64    `json:"vehicle_id"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	Available bool      `json:"available"`
	Conflicts int       `json:"conflicts"`
}

// CheckAvailability validates the range and reports availability together
// with the number of conflicting reservations.
func (s *Service) CheckAvailability(ctx context.Context, vehicleID uint64, start, end time.Time) (Availability, error) {
	if !end.After(start) {
		return Availability{}, Validation("end date must be after start date")
	}
	v, err := s.store.Vehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Availability{}, NotFound("vehicle not found")
		}
		return Availability{}, err
	}
	out := Availability{VehicleID: vehicleID, Start: start.UTC(), End: end.UTC()}
	n, err := s.store.CountOverlapping(ctx, vehicleID, start, end, 0)
	if err != nil {
		return Availability{}, err
	}
	out.Conflicts = n
	out.Available = v.IsActive && n == 0
	return out, nil
}
