package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/catalog"
)

// AvailabilityChecker answers per-vehicle availability queries.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, vehicleID uint64, start, end time.Time) (booking.Availability, error)
}

// VehicleHandler serves the public catalog under /v1/vehicles.
type VehicleHandler struct {
	Catalog      *catalog.Service
	Availability AvailabilityChecker
}

func NewVehicleHandler(cat *catalog.Service, avail AvailabilityChecker) *VehicleHandler {
	if cat == nil || avail == nil {
		panic("nil dependency passed to NewVehicleHandler")
	}
	return &VehicleHandler{Catalog: cat, Availability: avail}
}

// vehicleFilter reads vehicle_type, min_capacity, max_price, skip and limit.
func vehicleFilter(c echo.Context) (catalog.Filter, error) {
	skip, limit, err := paging(c)
	if err != nil {
		return catalog.Filter{}, err
	}
	f := catalog.Filter{VehicleType: c.QueryParam("vehicle_type"), Skip: skip, Limit: limit}
	if s := c.QueryParam("min_capacity"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return catalog.Filter{}, booking.Validation("min_capacity must be an integer")
		}
		f.MinCapacity = n
	}
	if s := c.QueryParam("max_price"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return catalog.Filter{}, booking.Validation("max_price must be a number")
		}
		f.MaxPrice = &d
	}
	f.OnlyAvailable = c.QueryParam("available") == "true"
	return f, nil
}

// List handles GET /v1/vehicles.  Only active vehicles are listed, cheapest
// first.
func (h *VehicleHandler) List(c echo.Context) error {
	f, err := vehicleFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Catalog.List(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items), "total": total})
}

// Types handles GET /v1/vehicles/types.
func (h *VehicleHandler) Types(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	types, err := h.Catalog.Types(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": types})
}

// Get handles GET /v1/vehicles/:id.
func (h *VehicleHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v, err := h.Catalog.Get(ctx, id, false)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": v})
}

// CheckAvailability handles GET /v1/vehicles/:id/availability?start=&end=.
func (h *VehicleHandler) CheckAvailability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	start, err := parseTime("start", c.QueryParam("start"))
	if err != nil {
		return writeError(c, err)
	}
	end, err := parseTime("end", c.QueryParam("end"))
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	a, err := h.Availability.CheckAvailability(ctx, id, start, end)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
