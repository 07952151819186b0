package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePaymentMethod(t *testing.T) {
	cases := map[string]string{
		"":          MethodCash,
		"cash":      MethodCash,
		"Efectivo":  MethodCash,
		" TARJETA ": MethodCard,
		"cheque":    MethodCheck,
		"deposito":  MethodDeposit,
		"deposit":   MethodDeposit,
	}
	for in, want := range cases {
		got, ok := NormalizePaymentMethod(in)
		assert.Truef(t, ok, "method %q", in)
		assert.Equalf(t, want, got, "method %q", in)
	}
	_, ok := NormalizePaymentMethod("paypal")
	assert.False(t, ok)
}

func TestRefundStatus(t *testing.T) {
	accepted := &Payment{Status: PaymentAccepted}
	assert.Equal(t, RefundPending, RefundStatus(StatusCancelled, accepted))
	assert.Equal(t, RefundNotApplicable, RefundStatus(StatusConfirmed, accepted))
	assert.Equal(t, RefundDone, RefundStatus(StatusCancelled, &Payment{Status: PaymentRefunded}))
	assert.Equal(t, RefundDone, RefundStatus(StatusCompleted, &Payment{Status: PaymentReimbursed}))
	assert.Equal(t, RefundNotApplicable, RefundStatus(StatusCancelled, nil))
}

func TestInvoiceNumbering(t *testing.T) {
	issued := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	r := Reservation{ID: 7, TotalPrice: decimal.RequireFromString("240.00")}
	inv := NewInvoice(r, "MXN", issued)

	assert.Equal(t, "VT-0007", inv.Folio)
	assert.Equal(t, "FAC-20240601-000007", inv.InvoiceNumber)
	assert.Equal(t, InvoiceGenerated, inv.Status)
	assert.Equal(t, "MXN", inv.Currency)
	assert.Equal(t, "VT-12345", Folio(12345))
}

func TestPromotionInEffect(t *testing.T) {
	p := Promotion{
		Active:    true,
		StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, p.InEffect(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.InEffect(time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.InEffect(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.InEffect(time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)))
	p.Active = false
	assert.False(t, p.InEffect(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)))
}

func TestStatusEnumerations(t *testing.T) {
	assert.True(t, ValidReservationStatus(StatusInProgress))
	assert.False(t, ValidReservationStatus("archived"))
	assert.True(t, IsActiveStatus(StatusPending))
	assert.False(t, IsActiveStatus(StatusCompleted))
	assert.True(t, ValidVehicleStatus(VehicleMaintenance))
	assert.False(t, ValidVehicleStatus("parked"))
	assert.True(t, ValidPaymentStatus(PaymentReimbursed))
}
