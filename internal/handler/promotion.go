package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/promotion"
)

type PromotionHandler struct {
	Catalog *promotion.Catalog
	Now     func() time.Time
}

func NewPromotionHandler(cat *promotion.Catalog) *PromotionHandler {
	return &PromotionHandler{Catalog: cat, Now: func() time.Time { return time.Now().UTC() }}
}

// List handles GET /v1/promotions?active=true.
func (h *PromotionHandler) List(c echo.Context) error {
	items := h.Catalog.List(c.QueryParam("active") == "true", h.Now())
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /v1/promotions/:id.
func (h *PromotionHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p, ok := h.Catalog.Get(id)
	if !ok {
		return writeError(c, booking.NotFound("promotion not found"))
	}
	return c.JSON(http.StatusOK, echo.Map{"item": p, "in_effect": p.InEffect(h.Now())})
}
