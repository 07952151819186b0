package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/handler"
	"github.com/iliyamo/vehicle-rental/internal/middleware"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// RegisterAdmin registers /v1/admin, restricted to the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.GET("/reservations", h.ListReservations)
	g.PATCH("/reservations/:id", h.UpdateReservation)
	g.PATCH("/reservations/:id/payment", h.UpdatePayment)

	g.GET("/vehicles", h.ListVehicles)
	g.POST("/vehicles", h.CreateVehicle)
	g.PATCH("/vehicles/:id", h.UpdateVehicle)

	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:id/role", h.UpdateUserRole)
}
