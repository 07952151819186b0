package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/middleware"
	"github.com/iliyamo/vehicle-rental/internal/model"
	"github.com/iliyamo/vehicle-rental/internal/promotion"
	"github.com/iliyamo/vehicle-rental/internal/support"
	"github.com/iliyamo/vehicle-rental/internal/utils"
)

const secret = "handler-secret"

// fakeReservations records the last create input and returns canned errors.
type fakeReservations struct {
	err     error
	created booking.CreateInput
	caller  booking.Principal
}

func (f *fakeReservations) Create(_ context.Context, p booking.Principal, in booking.CreateInput) (model.ReservationDetail, error) {
	f.caller, f.created = p, in
	if f.err != nil {
		return model.ReservationDetail{}, f.err
	}
	return model.ReservationDetail{Reservation: model.Reservation{
		ID: 1, UserID: p.UserID, VehicleID: in.VehicleID, StartDate: in.Start, EndDate: in.End,
		TotalDays: 2, PricePerDay: decimal.NewFromInt(150), TotalPrice: decimal.NewFromInt(300), Status: model.StatusPending,
	}}, nil
}

func (f *fakeReservations) Get(_ context.Context, p booking.Principal, id uint64) (model.ReservationDetail, error) {
	f.caller = p
	if f.err != nil {
		return model.ReservationDetail{}, f.err
	}
	return model.ReservationDetail{Reservation: model.Reservation{ID: id, UserID: p.UserID}}, nil
}

func (f *fakeReservations) List(_ context.Context, p booking.Principal, _ string, _, _ int) ([]model.Reservation, int, error) {
	f.caller = p
	return []model.Reservation{{ID: 1, UserID: p.UserID}}, 4, f.err
}

func (f *fakeReservations) Stats(context.Context, booking.Principal) (model.ReservationStats, error) {
	return model.ReservationStats{Total: 1}, f.err
}

func (f *fakeReservations) Update(_ context.Context, _ booking.Principal, id uint64, _ booking.UpdateInput) (model.ReservationDetail, error) {
	return model.ReservationDetail{Reservation: model.Reservation{ID: id}}, f.err
}

func (f *fakeReservations) Cancel(_ context.Context, _ booking.Principal, id uint64) (model.Reservation, error) {
	return model.Reservation{ID: id, Status: model.StatusCancelled}, f.err
}

func (f *fakeReservations) GetInvoice(_ context.Context, _ booking.Principal, id uint64) (model.Invoice, error) {
	return model.Invoice{ReservationID: id}, f.err
}

func newEcho(h *ReservationHandler) *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	g := e.Group("/v1/reservations",
		middleware.JWTAuth(secret),
		middleware.RequireRole(model.RoleClient, model.RoleAdmin),
	)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel)
	return e
}

func bearer(t *testing.T, uid uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func do(e *echo.Echo, method, target, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const createBody = `{"vehicle_id":7,"start_date":"2030-06-01T10:00:00Z","end_date":"2030-06-03T10:00:00Z",
	"pickup_location":"Airport","payment_method":"card"}`

func TestCreateReturns201(t *testing.T) {
	f := &fakeReservations{}
	e := newEcho(NewReservationHandler(f))

	rec := do(e, http.MethodPost, "/v1/reservations", bearer(t, 5, model.RoleClient), createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"item"`)
	assert.Equal(t, uint64(5), f.caller.UserID)
	assert.Equal(t, uint64(7), f.created.VehicleID)
	assert.True(t, f.created.Start.Equal(time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)))
}

func TestCreateRejectsMissingFields(t *testing.T) {
	e := newEcho(NewReservationHandler(&fakeReservations{}))

	rec := do(e, http.MethodPost, "/v1/reservations", bearer(t, 5, model.RoleClient), `{"vehicle_id":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"validation"`)
	assert.Contains(t, rec.Body.String(), `start_date failed required validation`)
}

func TestCreateWithoutPaymentMethod(t *testing.T) {
	f := &fakeReservations{}
	e := newEcho(NewReservationHandler(f))

	body := `{"vehicle_id":7,"start_date":"2030-06-01T10:00:00Z","end_date":"2030-06-03T10:00:00Z","pickup_location":"Airport"}`
	rec := do(e, http.MethodPost, "/v1/reservations", bearer(t, 5, model.RoleClient), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "", f.created.PaymentMethod)
}

func TestRoutesRequireToken(t *testing.T) {
	e := newEcho(NewReservationHandler(&fakeReservations{}))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/reservations", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/reservations", bearer(t, 1, "GUEST"), "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/reservations", bearer(t, 1, model.RoleAdmin), "").Code)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{booking.NotFound("reservation not found"), http.StatusNotFound, "not_found"},
		{booking.Validation("bad dates"), http.StatusBadRequest, "validation"},
		{booking.InvalidState("reservation is already cancelled"), http.StatusBadRequest, "invalid_state"},
		{booking.Conflict("vehicle is not available"), http.StatusConflict, "conflict"},
		{fmt.Errorf("wrapped: %w", booking.Conflict("taken")), http.StatusConflict, "conflict"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		e := newEcho(NewReservationHandler(&fakeReservations{err: tc.err}))
		rec := do(e, http.MethodDelete, "/v1/reservations/3", bearer(t, 1, model.RoleClient), "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), `"error":"`+tc.kind+`"`)
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	e := newEcho(NewReservationHandler(&fakeReservations{err: errors.New("dial tcp 10.0.0.3:3306")}))
	rec := do(e, http.MethodGet, "/v1/reservations/3", bearer(t, 1, model.RoleClient), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestListReturnsTotals(t *testing.T) {
	e := newEcho(NewReservationHandler(&fakeReservations{}))
	rec := do(e, http.MethodGet, "/v1/reservations?status=pending&skip=0&limit=10", bearer(t, 2, model.RoleClient), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), `"total":4`)

	rec = do(e, http.MethodGet, "/v1/reservations?limit=ten", bearer(t, 2, model.RoleClient), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidIDIsValidationError(t *testing.T) {
	e := newEcho(NewReservationHandler(&fakeReservations{}))
	rec := do(e, http.MethodGet, "/v1/reservations/abc", bearer(t, 2, model.RoleClient), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeTickets struct {
	in support.TicketInput
}

func (f *fakeTickets) OpenTicket(_ context.Context, in support.TicketInput) (model.SupportTicket, error) {
	f.in = in
	return model.SupportTicket{ID: 1, Folio: "VT-0004", Status: model.TicketOpen}, nil
}

func TestSupportTicketLinksAuthenticatedUser(t *testing.T) {
	f := &fakeTickets{}
	h := NewSupportHandler(f)
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.POST("/v1/support/tickets", h.Open, middleware.OptionalJWT(secret))

	body := `{"folio":"VT-0004","message":"the car had a flat tyre"}`
	rec := do(e, http.MethodPost, "/v1/support/tickets", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, f.in.UserID)

	rec = do(e, http.MethodPost, "/v1/support/tickets", bearer(t, 9, model.RoleClient), body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, f.in.UserID)
	assert.Equal(t, uint64(9), *f.in.UserID)

	rec = do(e, http.MethodPost, "/v1/support/tickets", "", `{"message":"no folio given here"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromotionLookup(t *testing.T) {
	cat := promotion.NewCatalog(model.Promotion{
		ID: 2, Title: "Spring", DiscountPercent: decimal.NewFromInt(20),
		StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), Active: true,
	})
	h := NewPromotionHandler(cat)
	h.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	e := echo.New()
	e.GET("/v1/promotions", h.List)
	e.GET("/v1/promotions/:id", h.Get)

	rec := do(e, http.MethodGet, "/v1/promotions/2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"in_effect":true`)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/promotions/99", "", "").Code)

	rec = do(e, http.MethodGet, "/v1/promotions?active=true", "", "")
	assert.Contains(t, rec.Body.String(), `"count":1`)
}
