package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// Reservations is the part of booking.Service used by client routes.
type Reservations interface {
	Create(ctx context.Context, p booking.Principal, in booking.CreateInput) (model.ReservationDetail, error)
	Get(ctx context.Context, p booking.Principal, id uint64) (model.ReservationDetail, error)
	List(ctx context.Context, p booking.Principal, status string, skip, limit int) ([]model.Reservation, int, error)
	Stats(ctx context.Context, p booking.Principal) (model.ReservationStats, error)
	Update(ctx context.Context, p booking.Principal, id uint64, in booking.UpdateInput) (model.ReservationDetail, error)
	Cancel(ctx context.Context, p booking.Principal, id uint64) (model.Reservation, error)
	GetInvoice(ctx context.Context, p booking.Principal, id uint64) (model.Invoice, error)
}

// ReservationHandler serves /v1/reservations.  Every route is scoped to the
// authenticated caller.
type ReservationHandler struct {
	Svc Reservations
}

func NewReservationHandler(svc Reservations) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	VehicleID        uint64    `json:"vehicle_id" validate:"required"`
	StartDate        time.Time `json:"start_date" validate:"required"`
	EndDate          time.Time `json:"end_date" validate:"required"`
	PickupLocation   string    `json:"pickup_location" validate:"required,max=255"`
	ReturnLocation   string    `json:"return_location" validate:"max=255"`
	PromotionID      *uint64   `json:"promotion_id"`
	PaymentMethod    string    `json:"payment_method" validate:"max=30"`
	PaymentReference string    `json:"payment_reference" validate:"max=100"`
	PaymentDetails   string    `json:"payment_details" validate:"max=1000"`
	Notes            string    `json:"notes" validate:"max=1500"`
}

type updateReservationReq struct {
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	PickupLocation *string    `json:"pickup_location" validate:"omitempty,max=255"`
	ReturnLocation *string    `json:"return_location" validate:"omitempty,max=255"`
	Notes          *string    `json:"notes" validate:"omitempty,max=1500"`
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createReservationReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.Create(ctx, p, booking.CreateInput{
		VehicleID:        req.VehicleID,
		Start:            req.StartDate,
		End:              req.EndDate,
		PickupLocation:   req.PickupLocation,
		ReturnLocation:   req.ReturnLocation,
		PromotionID:      req.PromotionID,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		PaymentDetails:   req.PaymentDetails,
		Notes:            req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": d})
}

// List handles GET /v1/reservations?status=&skip=&limit=.
func (h *ReservationHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Svc.List(ctx, p, status, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items), "total": total})
}

// Stats handles GET /v1/reservations/stats.
func (h *ReservationHandler) Stats(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	st, err := h.Svc.Stats(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.Get(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}

// Update handles PATCH and PUT /v1/reservations/:id.  Only pending
// reservations can be changed.
func (h *ReservationHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateReservationReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.Update(ctx, p, id, booking.UpdateInput{
		Start:          req.StartDate,
		End:            req.EndDate,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		Notes:          req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	r, err := h.Svc.Cancel(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation cancelled", "item": r})
}

// Invoice handles GET /v1/reservations/:id/invoice.
func (h *ReservationHandler) Invoice(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	inv, err := h.Svc.GetInvoice(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": inv})
}
