package mongostore

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

// Documents mirror the model types with Decimal128 money and bson tags.
// Numeric ids come from the counters collection so that both backends expose
// the same identifiers.

type vehicleDoc struct {
	ID           uint64                `bson:"_id"`
	Brand        string                `bson:"brand"`
	Model        string                `bson:"model"`
	Year         int                   `bson:"year"`
	VehicleType  string                `bson:"vehicle_type"`
	Capacity     int                   `bson:"capacity"`
	Plate        string                `bson:"plate,omitempty"`
	Color        string                `bson:"color,omitempty"`
	PricePerDay  primitive.Decimal128  `bson:"price_per_day"`
	PricePerHour *primitive.Decimal128 `bson:"price_per_hour,omitempty"`
	Description  string                `bson:"description,omitempty"`
	ImageURL     string                `bson:"image_url,omitempty"`
	Status       string                `bson:"status"`
	IsActive     bool                  `bson:"is_active"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

type reservationDoc struct {
	ID             uint64               `bson:"_id"`
	UserID         uint64               `bson:"user_id"`
	VehicleID      uint64               `bson:"vehicle_id"`
	StartDate      time.Time            `bson:"start_date"`
	EndDate        time.Time            `bson:"end_date"`
	PickupLocation string               `bson:"pickup_location"`
	ReturnLocation string               `bson:"return_location"`
	TotalDays      int                  `bson:"total_days"`
	PricePerDay    primitive.Decimal128 `bson:"price_per_day"`
	TotalPrice     primitive.Decimal128 `bson:"total_price"`
	Status         string               `bson:"status"`
	Notes          string               `bson:"notes,omitempty"`
	AdminNotes     string               `bson:"admin_notes,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
	CancelledAt    *time.Time           `bson:"cancelled_at,omitempty"`
}

type paymentDoc struct {
	ID            uint64               `bson:"_id"`
	ReservationID uint64               `bson:"reservation_id"`
	UserID        uint64               `bson:"user_id"`
	Method        string               `bson:"method"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Currency      string               `bson:"currency"`
	Status        string               `bson:"status"`
	Reference     string               `bson:"reference,omitempty"`
	Details       string               `bson:"details,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

type invoiceDoc struct {
	ID            uint64               `bson:"_id"`
	ReservationID uint64               `bson:"reservation_id"`
	Folio         string               `bson:"folio"`
	InvoiceNumber string               `bson:"invoice_number"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Currency      string               `bson:"currency"`
	Status        string               `bson:"status"`
	IssuedAt      time.Time            `bson:"issued_at"`
}

type ticketDoc struct {
	ID            uint64    `bson:"_id"`
	ReservationID uint64    `bson:"reservation_id"`
	UserID        *uint64   `bson:"user_id,omitempty"`
	Folio         string    `bson:"folio"`
	IssueType     string    `bson:"issue_type"`
	Message       string    `bson:"message"`
	ContactName   string    `bson:"contact_name,omitempty"`
	ContactEmail  string    `bson:"contact_email,omitempty"`
	ContactPhone  string    `bson:"contact_phone,omitempty"`
	Status        string    `bson:"status"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		panic(err) // money never exceeds 34 significant digits
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func newVehicleDoc(v model.Vehicle) vehicleDoc {
	d := vehicleDoc{
		ID:          v.ID,
		Brand:       v.Brand,
		Model:       v.Model,
		Year:        v.Year,
		VehicleType: v.VehicleType,
		Capacity:    v.Capacity,
		Plate:       v.Plate,
		Color:       v.Color,
		PricePerDay: toDecimal128(v.PricePerDay),
		Description: v.Description,
		ImageURL:    v.ImageURL,
		Status:      v.Status,
		IsActive:    v.IsActive,
		CreatedAt:   v.CreatedAt.UTC(),
		UpdatedAt:   v.UpdatedAt.UTC(),
	}
	if v.PricePerHour != nil {
		ph := toDecimal128(*v.PricePerHour)
		d.PricePerHour = &ph
	}
	return d
}

func (d vehicleDoc) model() model.Vehicle {
	v := model.Vehicle{
		ID:          d.ID,
		Brand:       d.Brand,
		Model:       d.Model,
		Year:        d.Year,
		VehicleType: d.VehicleType,
		Capacity:    d.Capacity,
		Plate:       d.Plate,
		Color:       d.Color,
		PricePerDay: fromDecimal128(d.PricePerDay),
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Status:      d.Status,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.PricePerHour != nil {
		ph := fromDecimal128(*d.PricePerHour)
		v.PricePerHour = &ph
	}
	return v
}

func newReservationDoc(r model.Reservation) reservationDoc {
	return reservationDoc{
		ID:             r.ID,
		UserID:         r.UserID,
		VehicleID:      r.VehicleID,
		StartDate:      r.StartDate.UTC(),
		EndDate:        r.EndDate.UTC(),
		PickupLocation: r.PickupLocation,
		ReturnLocation: r.ReturnLocation,
		TotalDays:      r.TotalDays,
		PricePerDay:    toDecimal128(r.PricePerDay),
		TotalPrice:     toDecimal128(r.TotalPrice),
		Status:         r.Status,
		Notes:          r.Notes,
		AdminNotes:     r.AdminNotes,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
		CancelledAt:    r.CancelledAt,
	}
}

func (d reservationDoc) model() model.Reservation {
	r := model.Reservation{
		ID:             d.ID,
		UserID:         d.UserID,
		VehicleID:      d.VehicleID,
		StartDate:      d.StartDate.UTC(),
		EndDate:        d.EndDate.UTC(),
		PickupLocation: d.PickupLocation,
		ReturnLocation: d.ReturnLocation,
		TotalDays:      d.TotalDays,
		PricePerDay:    fromDecimal128(d.PricePerDay),
		TotalPrice:     fromDecimal128(d.TotalPrice),
		Status:         d.Status,
		Notes:          d.Notes,
		AdminNotes:     d.AdminNotes,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if d.CancelledAt != nil {
		t := d.CancelledAt.UTC()
		r.CancelledAt = &t
	}
	return r
}

func newPaymentDoc(p model.Payment) paymentDoc {
	return paymentDoc{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		UserID:        p.UserID,
		Method:        p.Method,
		Amount:        toDecimal128(p.Amount),
		Currency:      p.Currency,
		Status:        p.Status,
		Reference:     p.Reference,
		Details:       p.Details,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func (d paymentDoc) model() model.Payment {
	return model.Payment{
		ID:            d.ID,
		ReservationID: d.ReservationID,
		UserID:        d.UserID,
		Method:        d.Method,
		Amount:        fromDecimal128(d.Amount),
		Currency:      d.Currency,
		Status:        d.Status,
		Reference:     d.Reference,
		Details:       d.Details,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

func newInvoiceDoc(inv model.Invoice) invoiceDoc {
	return invoiceDoc{
		ID:            inv.ID,
		ReservationID: inv.ReservationID,
		Folio:         inv.Folio,
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        toDecimal128(inv.Amount),
		Currency:      inv.Currency,
		Status:        inv.Status,
		IssuedAt:      inv.IssuedAt.UTC(),
	}
}

func (d invoiceDoc) model() model.Invoice {
	return model.Invoice{
		ID:            d.ID,
		ReservationID: d.ReservationID,
		Folio:         d.Folio,
		InvoiceNumber: d.InvoiceNumber,
		Amount:        fromDecimal128(d.Amount),
		Currency:      d.Currency,
		Status:        d.Status,
		IssuedAt:      d.IssuedAt.UTC(),
	}
}

func newTicketDoc(t model.SupportTicket) ticketDoc {
	return ticketDoc{
		ID:            t.ID,
		ReservationID: t.ReservationID,
		UserID:        t.UserID,
		Folio:         t.Folio,
		IssueType:     t.IssueType,
		Message:       t.Message,
		ContactName:   t.ContactName,
		ContactEmail:  t.ContactEmail,
		ContactPhone:  t.ContactPhone,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt.UTC(),
		UpdatedAt:     t.UpdatedAt.UTC(),
	}
}
