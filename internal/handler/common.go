package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/middleware"
)

// dbTimeout bounds the storage work of a single request.
const dbTimeout = 5 * time.Second

// RequestValidator adapts validator/v10 to echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// report fields by their json names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// bindValid binds the request body into dst and runs the echo validator when
// one is installed.  Failures are reported as booking validation errors.
func bindValid(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return booking.Validation("invalid body")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(dst); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			return booking.Validation(fe.Field() + " failed " + fe.Tag() + " validation")
		}
		return booking.Validation("invalid body")
	}
	return nil
}

// getUserID extracts the user id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if uid, ok := c.Get(middleware.CtxUserID).(uint64); ok && uid > 0 {
		return uid, nil
	}
	return 0, errors.New("invalid user_id in context")
}

// principal is the authenticated caller of c.
func principal(c echo.Context) (booking.Principal, error) {
	uid, err := getUserID(c)
	if err != nil {
		return booking.Principal{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return booking.Principal{UserID: uid, Role: role}, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func statusFor(k booking.Kind) int {
	switch k {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindValidation, booking.KindInvalidState:
		return http.StatusBadRequest
	case booking.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": kind, "message": text}.  Errors that
// are not booking errors are logged and hidden behind a generic message.
func writeError(c echo.Context, err error) error {
	kind := booking.KindOf(err)
	if kind == "" {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal server error"})
	}
	return c.JSON(statusFor(kind), echo.Map{"error": string(kind), "message": booking.MessageOf(err)})
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, booking.Validation("invalid " + name)
	}
	return id, nil
}

// paging reads skip and limit.  Missing values fall back to 0 and the
// default page size; the services clamp the rest.
func paging(c echo.Context) (skip, limit int, err error) {
	if s := c.QueryParam("skip"); s != "" {
		if skip, err = strconv.Atoi(s); err != nil {
			return 0, 0, booking.Validation("skip must be an integer")
		}
	}
	if s := c.QueryParam("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, booking.Validation("limit must be an integer")
		}
	}
	return skip, limit, nil
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, booking.Validation(field + " must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}
