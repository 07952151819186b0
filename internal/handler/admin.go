package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/catalog"
	"github.com/iliyamo/vehicle-rental/internal/model"
	"github.com/iliyamo/vehicle-rental/internal/repository"
)

// AdminReservations is the part of booking.Service used by admin routes.
type AdminReservations interface {
	AdminList(ctx context.Context, status string, skip, limit int) ([]model.ReservationDetail, int, error)
	AdminUpdateStatus(ctx context.Context, admin booking.Principal, id uint64, status, adminNotes *string) (model.ReservationDetail, error)
	AdminUpdatePayment(ctx context.Context, admin booking.Principal, reservationID uint64, status string, reference *string) (model.Payment, error)
}

// AdminHandler serves /v1/admin.  Role checks happen in the router.
type AdminHandler struct {
	Reservations AdminReservations
	Vehicles     *catalog.Service
	Users        *repository.UserRepo

	// PurgeCatalog drops cached catalog responses after a vehicle write.
	// Optional.
	PurgeCatalog func(ctx context.Context) error
}

func NewAdminHandler(res AdminReservations, vehicles *catalog.Service, users *repository.UserRepo) *AdminHandler {
	if res == nil || vehicles == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Reservations: res, Vehicles: vehicles, Users: users}
}

// ListReservations handles GET /v1/admin/reservations.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Reservations.AdminList(ctx, status, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items), "total": total})
}

type adminStatusReq struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=1500"`
}

// UpdateReservation handles PATCH /v1/admin/reservations/:id.
func (h *AdminHandler) UpdateReservation(c echo.Context) error {
	admin, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req adminStatusReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.Status == nil && req.AdminNotes == nil {
		return writeError(c, booking.Validation("status or admin_notes is required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Reservations.AdminUpdateStatus(ctx, admin, id, req.Status, req.AdminNotes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}

type adminPaymentReq struct {
	Status    string  `json:"status" validate:"required"`
	Reference *string `json:"reference" validate:"omitempty,max=100"`
}

// UpdatePayment handles PATCH /v1/admin/reservations/:id/payment.
func (h *AdminHandler) UpdatePayment(c echo.Context) error {
	admin, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req adminPaymentReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	pay, err := h.Reservations.AdminUpdatePayment(ctx, admin, id, req.Status, req.Reference)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": pay})
}

// ListVehicles handles GET /v1/admin/vehicles?include_inactive=true.
func (h *AdminHandler) ListVehicles(c echo.Context) error {
	f, err := vehicleFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	f.IncludeInactive = c.QueryParam("include_inactive") == "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Vehicles.List(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items), "total": total})
}

type createVehicleReq struct {
	Brand        string           `json:"brand" validate:"required,max=100"`
	Model        string           `json:"model" validate:"required,max=100"`
	Year         int              `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	VehicleType  string           `json:"vehicle_type" validate:"required,max=50"`
	Capacity     int              `json:"capacity" validate:"required,gt=0"`
	Plate        string           `json:"plate" validate:"max=20"`
	Color        string           `json:"color" validate:"max=50"`
	PricePerDay  decimal.Decimal  `json:"price_per_day"`
	PricePerHour *decimal.Decimal `json:"price_per_hour"`
	Description  string           `json:"description" validate:"max=2000"`
	ImageURL     string           `json:"image_url" validate:"omitempty,url"`
	Status       string           `json:"status"`
}

// CreateVehicle handles POST /v1/admin/vehicles.
func (h *AdminHandler) CreateVehicle(c echo.Context) error {
	var req createVehicleReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v, err := h.Vehicles.Create(ctx, catalog.NewVehicle{
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		VehicleType:  req.VehicleType,
		Capacity:     req.Capacity,
		Plate:        req.Plate,
		Color:        req.Color,
		PricePerDay:  req.PricePerDay,
		PricePerHour: req.PricePerHour,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Status:       req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, echo.Map{"item": v})
}

type patchVehicleReq struct {
	Status      *string          `json:"status"`
	IsActive    *bool            `json:"is_active"`
	PricePerDay *decimal.Decimal `json:"price_per_day"`
}

// UpdateVehicle handles PATCH /v1/admin/vehicles/:id.
func (h *AdminHandler) UpdateVehicle(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req patchVehicleReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.Status == nil && req.IsActive == nil && req.PricePerDay == nil {
		return writeError(c, booking.Validation("nothing to update"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v, err := h.Vehicles.Update(ctx, id, catalog.Patch{Status: req.Status, IsActive: req.IsActive, PricePerDay: req.PricePerDay})
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, echo.Map{"item": v})
}

func (h *AdminHandler) purge(c echo.Context) {
	if h.PurgeCatalog == nil {
		return
	}
	if err := h.PurgeCatalog(c.Request().Context()); err != nil {
		c.Logger().Warnf("[cache] purge catalog: %v", err)
	}
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > booking.MaxListLimit {
		limit = booking.DefaultListLimit
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users, "count": len(users)})
}

type roleReq struct {
	Role string `json:"role" validate:"required"`
}

// UpdateUserRole handles PATCH /v1/admin/users/:id/role.
func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleClient && role != model.RoleAdmin {
		return writeError(c, booking.Validation("role must be CLIENT or ADMIN"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return writeError(c, booking.NotFound("user not found"))
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
}
