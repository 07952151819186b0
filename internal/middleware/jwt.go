package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/utils"
)

// Context keys set by the JWT middlewares.
const (
	CtxUserID = "user_id" // uint64
	CtxRole   = "role"    // string
)

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// JWTAuth validates a Bearer access token and stores the caller's id and
// role in the context under CtxUserID and CtxRole.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			cl, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, cl.UserID)
			c.Set(CtxRole, cl.Role)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for routes open to guests: a valid token populates
// the context, a missing or invalid one is ignored.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if cl, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(CtxUserID, cl.UserID)
					c.Set(CtxRole, cl.Role)
				}
			}
			return next(c)
		}
	}
}
