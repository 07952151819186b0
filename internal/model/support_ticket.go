package model

import "time"

// Support ticket statuses.
const (
	TicketOpen   = "open"
	TicketClosed = "closed"
)

// SupportTicket is a customer issue raised against a reservation folio.
type SupportTicket struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`          // support_tickets.id
	ReservationID uint64    `gorm:"not null;index" json:"reservation_id"`        // support_tickets.reservation_id
	UserID        *uint64   `gorm:"index" json:"user_id,omitempty"`              // support_tickets.user_id (nullable)
	Folio         string    `gorm:"size:20;not null" json:"folio"`               // support_tickets.folio
	IssueType     string    `gorm:"size:40;not null" json:"issue_type"`          // support_tickets.issue_type
	Message       string    `gorm:"type:text;not null" json:"message"`           // support_tickets.message
	ContactName   string    `gorm:"size:120" json:"contact_name,omitempty"`      // support_tickets.contact_name
	ContactEmail  string    `gorm:"size:190" json:"contact_email,omitempty"`     // support_tickets.contact_email
	ContactPhone  string    `gorm:"size:40" json:"contact_phone,omitempty"`      // support_tickets.contact_phone
	Status        string    `gorm:"size:20;not null;default:open" json:"status"` // support_tickets.status
	CreatedAt     time.Time `json:"created_at"`                                  // support_tickets.created_at
	UpdatedAt     time.Time `json:"updated_at"`                                  // support_tickets.updated_at
}
