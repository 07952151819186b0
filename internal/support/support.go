// Package support records customer issues raised against a reservation
// folio.
package support

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

const (
	minMessageLen    = 8
	maxMessageLen    = 1500
	defaultIssueType = "general"
)

// Store persists tickets.
type Store interface {
	InsertTicket(ctx context.Context, t *model.SupportTicket) error
}

// Reservations is the slice of the booking service the ticket desk needs.
type Reservations interface {
	ReservationByID(ctx context.Context, id uint64) (model.Reservation, error)
	EnsureInvoice(ctx context.Context, r model.Reservation) (model.Invoice, bool, error)
}

// Service opens support tickets.
type Service struct {
	store        Store
	reservations Reservations
	log          *logrus.Logger
	Now          func() time.Time
}

func NewService(store Store, reservations Reservations, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:        store,
		reservations: reservations,
		log:          log,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// TicketInput is a support request.  UserID is set when the caller is
// authenticated.
type TicketInput struct {
	Folio        string
	IssueType    string
	Message      string
	ContactName  string
	ContactEmail string
	ContactPhone string
	UserID       *uint64
}

// OpenTicket resolves the folio to a reservation, makes sure it has an
// invoice and stores an open ticket.
func (s *Service) OpenTicket(ctx context.Context, in TicketInput) (model.SupportTicket, error) {
	msg := strings.TrimSpace(in.Message)
	if n := utf8.RuneCountInString(msg); n < minMessageLen || n > maxMessageLen {
		return model.SupportTicket{}, booking.Validation("message must be between 8 and 1500 characters")
	}
	id, err := booking.ParseFolio(in.Folio)
	if err != nil {
		return model.SupportTicket{}, err
	}
	r, err := s.reservations.ReservationByID(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return model.SupportTicket{}, booking.NotFound("no reservation matches this folio")
		}
		return model.SupportTicket{}, err
	}
	inv, created, err := s.reservations.EnsureInvoice(ctx, r)
	if err != nil {
		return model.SupportTicket{}, err
	}
	if created {
		s.log.WithFields(logrus.Fields{"reservation_id": r.ID, "invoice": inv.InvoiceNumber}).Info("invoice issued for support ticket")
	}

	issue := strings.ToLower(strings.TrimSpace(in.IssueType))
	if issue == "" {
		issue = defaultIssueType
	}
	now := s.Now()
	t := model.SupportTicket{
		ReservationID: r.ID,
		UserID:        in.UserID,
		Folio:         inv.Folio,
		IssueType:     issue,
		Message:       msg,
		ContactName:   strings.TrimSpace(in.ContactName),
		ContactEmail:  strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		Status:        model.TicketOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.InsertTicket(ctx, &t); err != nil {
		return model.SupportTicket{}, err
	}
	return t, nil
}
