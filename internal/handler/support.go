package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-rental/internal/model"
	"github.com/iliyamo/vehicle-rental/internal/support"
)

// TicketOpener opens support tickets.
type TicketOpener interface {
	OpenTicket(ctx context.Context, in support.TicketInput) (model.SupportTicket, error)
}

// SupportHandler serves POST /v1/support/tickets.  Guests may use it; a
// valid bearer token links the ticket to the user.
type SupportHandler struct {
	Tickets TicketOpener
}

func NewSupportHandler(t TicketOpener) *SupportHandler {
	return &SupportHandler{Tickets: t}
}

type ticketReq struct {
	Folio        string `json:"folio" validate:"required"`
	IssueType    string `json:"issue_type" validate:"max=50"`
	Message      string `json:"message" validate:"required"`
	ContactName  string `json:"contact_name" validate:"max=150"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=30"`
}

func (h *SupportHandler) Open(c echo.Context) error {
	var req ticketReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	in := support.TicketInput{
		Folio:        req.Folio,
		IssueType:    req.IssueType,
		Message:      req.Message,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	}
	if uid, err := getUserID(c); err == nil {
		in.UserID = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Tickets.OpenTicket(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": t})
}
