// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/handler"
	"github.com/iliyamo/vehicle-rental/internal/middleware"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// RegisterRoutes registers routes that need neither authentication nor rate
// limiting.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token endpoints under /v1/auth and /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)              // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // keeps the refresh token
	// logout authenticates itself with either a refresh token or a bearer
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient, model.RoleAdmin),
	)
}

// Public groups the unauthenticated catalog and support handlers.
type Public struct {
	Vehicles   *handler.VehicleHandler
	Promotions *handler.PromotionHandler
	Support    *handler.SupportHandler
}

// RegisterPublic registers guest endpoints.  limit applies to every route;
// cache only to the listings, whose content does not depend on the caller.
func RegisterPublic(e *echo.Echo, p Public, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", limit)

	g.GET("/vehicles", p.Vehicles.List, cache)
	g.GET("/vehicles/types", p.Vehicles.Types, cache)
	g.GET("/vehicles/:id", p.Vehicles.Get, cache)
	g.GET("/vehicles/:id/availability", p.Vehicles.CheckAvailability)

	g.GET("/promotions", p.Promotions.List, cache)
	g.GET("/promotions/:id", p.Promotions.Get)

	g.POST("/support/tickets", p.Support.Open, middleware.OptionalJWT(jwtSecret))
}
