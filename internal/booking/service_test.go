package booking

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vehicle-rental/internal/model"
	"github.com/iliyamo/vehicle-rental/internal/queue"
)

var (
	clock  = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	alice  = Principal{UserID: 10, Role: model.RoleClient}
	bob    = Principal{UserID: 11, Role: model.RoleClient}
	admin  = Principal{UserID: 1, Role: model.RoleAdmin}
	june1  = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	june3  = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	promID = uint64(7)
)

type fixture struct {
	svc   *Service
	store *memStore
	pub   *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := newMemStore()
	st.addVehicle(vehicleAt("150.00"))
	pub := &recordingPublisher{}
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(st, promoMap{promID: *promo("20")}, pub, log, "MXN")
	svc.Now = func() time.Time { return clock }
	return fixture{svc: svc, store: st, pub: pub}
}

func (f fixture) book(t *testing.T, p Principal, start, end time.Time) model.ReservationDetail {
	t.Helper()
	d, err := f.svc.Create(context.Background(), p, CreateInput{
		VehicleID:      1,
		Start:          start,
		End:            end,
		PickupLocation: "Airport",
	})
	require.NoError(t, err)
	return d
}

func TestCreateThenOverlappingBookingConflicts(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)

	assert.Equal(t, model.StatusPending, d.Status)
	assert.Equal(t, 2, d.TotalDays)
	assert.Equal(t, "300.00", d.TotalPrice.StringFixed(2))
	assert.Equal(t, "150.00", d.PricePerDay.StringFixed(2))

	_, err := f.svc.Create(context.Background(), bob, CreateInput{
		VehicleID:      1,
		Start:          time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC),
		PickupLocation: "Downtown",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Len(t, f.store.reservations, 1)
}

func TestCreateAllowsAdjacentRanges(t *testing.T) {
	f := newFixture(t)
	f.book(t, alice, june1, june3)
	d := f.book(t, bob, june3, june3.Add(24*time.Hour))
	assert.Equal(t, 1, d.TotalDays)
}

func TestCreateWritesPaymentAndInvoice(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Create(context.Background(), alice, CreateInput{
		VehicleID:        1,
		Start:            june1,
		End:              june3,
		PickupLocation:   "  Airport ",
		PaymentMethod:    "tarjeta",
		PaymentReference: "AUTH-991",
		Notes:            "child seat",
	})
	require.NoError(t, err)

	assert.Equal(t, "Airport", d.PickupLocation)
	assert.Equal(t, "Airport", d.ReturnLocation, "return location defaults to pickup")
	require.NotNil(t, d.Vehicle)
	assert.Equal(t, uint64(1), d.Vehicle.ID)

	pay, ok := f.store.payments[d.ID]
	require.True(t, ok)
	assert.Equal(t, model.MethodCard, pay.Method)
	assert.Equal(t, model.PaymentAccepted, pay.Status)
	assert.Equal(t, "MXN", pay.Currency)
	assert.Equal(t, "AUTH-991", pay.Reference)
	assert.True(t, pay.Amount.Equal(d.TotalPrice))

	inv, ok := f.store.invoices[d.ID]
	require.True(t, ok)
	assert.Equal(t, model.Folio(d.ID), inv.Folio)
	assert.Equal(t, model.InvoiceNumber(d.ID, clock), inv.InvoiceNumber)
	assert.Equal(t, model.InvoiceGenerated, inv.Status)
	assert.True(t, inv.Amount.Equal(d.TotalPrice))
	require.NotNil(t, d.Invoice)
	assert.Equal(t, inv.Folio, d.Invoice.Folio)

	assert.Equal(t, []string{queue.EventReservationCreated}, f.pub.types())
}

func TestCreateDefaultsToCash(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	assert.Equal(t, model.MethodCash, f.store.payments[d.ID].Method)
}

func TestCreateAppliesPromotion(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Create(context.Background(), alice, CreateInput{
		VehicleID: 1, Start: june1, End: june3, PickupLocation: "Airport",
		PromotionID: &promID, Notes: "late arrival",
	})
	require.NoError(t, err)
	assert.Equal(t, "240.00", d.TotalPrice.StringFixed(2))
	assert.Equal(t, "late arrival | Promotion applied: Spring deal (20% OFF)", d.Notes)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	missing := uint64(404)
	cases := []struct {
		name string
		in   CreateInput
		kind Kind
	}{
		{"end before start", CreateInput{VehicleID: 1, Start: june3, End: june1, PickupLocation: "A"}, KindValidation},
		{"end equals start", CreateInput{VehicleID: 1, Start: june1, End: june1, PickupLocation: "A"}, KindValidation},
		{"start in the past", CreateInput{VehicleID: 1, Start: clock.Add(-time.Hour), End: june1, PickupLocation: "A"}, KindValidation},
		{"start now", CreateInput{VehicleID: 1, Start: clock, End: june1, PickupLocation: "A"}, KindValidation},
		{"no pickup", CreateInput{VehicleID: 1, Start: june1, End: june3}, KindValidation},
		{"bad payment method", CreateInput{VehicleID: 1, Start: june1, End: june3, PickupLocation: "A", PaymentMethod: "bitcoin"}, KindValidation},
		{"unknown promotion", CreateInput{VehicleID: 1, Start: june1, End: june3, PickupLocation: "A", PromotionID: &missing}, KindValidation},
		{"unknown vehicle", CreateInput{VehicleID: 9, Start: june1, End: june3, PickupLocation: "A"}, KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), alice, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
	assert.Empty(t, f.store.reservations)
	assert.Empty(t, f.store.payments)
}

func TestCreateRejectsInactiveVehicle(t *testing.T) {
	f := newFixture(t)
	v := vehicleAt("70.00")
	v.ID = 2
	v.IsActive = false
	f.store.addVehicle(v)

	_, err := f.svc.Create(context.Background(), alice, CreateInput{VehicleID: 2, Start: june1, End: june3, PickupLocation: "A"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.store.failInvoiceInsert = true

	_, err := f.svc.Create(context.Background(), alice, CreateInput{VehicleID: 1, Start: june1, End: june3, PickupLocation: "A"})
	require.Error(t, err)
	assert.Empty(t, KindOf(err))
	assert.Empty(t, f.store.reservations)
	assert.Empty(t, f.store.payments)
	assert.Empty(t, f.store.invoices)
	assert.Empty(t, f.pub.types())
}

func TestConcurrentOverlappingCreatesBookOnce(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := Principal{UserID: uint64(100 + i), Role: model.RoleClient}
			start := june1.Add(time.Duration(i%3) * time.Hour)
			_, err := f.svc.Create(context.Background(), p, CreateInput{
				VehicleID: 1, Start: start, End: june3, PickupLocation: "A",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case KindOf(err) == KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, f.store.reservations, 1)
}

func TestGetScopesToOwner(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)

	got, err := f.svc.Get(context.Background(), alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	require.NotNil(t, got.Vehicle)
	require.NotNil(t, got.Invoice)
	require.NotNil(t, got.Payment)

	_, err = f.svc.Get(context.Background(), bob, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(context.Background(), alice, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)

	_, err := f.svc.Cancel(context.Background(), bob, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	r, err := f.svc.Cancel(context.Background(), alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, r.Status)
	require.NotNil(t, r.CancelledAt)
	assert.Equal(t, clock, *r.CancelledAt)
	assert.Equal(t, model.PaymentAccepted, f.store.payments[d.ID].Status, "cancel does not refund")

	_, err = f.svc.Cancel(context.Background(), alice, d.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, []string{queue.EventReservationCreated, queue.EventReservationCancelled}, f.pub.types())

	// the range is free again
	f.book(t, bob, june1, june3)
}

func TestCancelCompletedIsInvalidState(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	completed := model.StatusCompleted
	_, err := f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, &completed, nil)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), alice, d.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateRequiresPending(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	confirmed := model.StatusConfirmed
	_, err := f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, &confirmed, nil)
	require.NoError(t, err)

	notes := "new notes"
	_, err = f.svc.Update(context.Background(), alice, d.ID, UpdateInput{Notes: &notes})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateRecomputesPrice(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)

	// overlaps its own previous range, which must not count as a conflict
	newEnd := june3.Add(24 * time.Hour)
	got, err := f.svc.Update(context.Background(), alice, d.ID, UpdateInput{End: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalDays)
	assert.Equal(t, "450.00", got.TotalPrice.StringFixed(2))
	assert.Equal(t, newEnd, f.store.reservations[d.ID].EndDate)
}

func TestUpdateDoesNotReapplyPromotion(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Create(context.Background(), alice, CreateInput{
		VehicleID: 1, Start: june1, End: june3, PickupLocation: "A", PromotionID: &promID,
	})
	require.NoError(t, err)
	require.Equal(t, "240.00", d.TotalPrice.StringFixed(2))

	newEnd := june3.Add(24 * time.Hour)
	got, err := f.svc.Update(context.Background(), alice, d.ID, UpdateInput{End: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, "450.00", got.TotalPrice.StringFixed(2))
}

func TestUpdateChecksConflictsAndDates(t *testing.T) {
	f := newFixture(t)
	mine := f.book(t, alice, june1, june3)
	f.book(t, bob, june3.Add(48*time.Hour), june3.Add(96*time.Hour))

	overlapEnd := june3.Add(72 * time.Hour)
	_, err := f.svc.Update(context.Background(), alice, mine.ID, UpdateInput{End: &overlapEnd})
	assert.ErrorIs(t, err, ErrConflict)

	badEnd := june1
	_, err = f.svc.Update(context.Background(), alice, mine.ID, UpdateInput{End: &badEnd})
	assert.ErrorIs(t, err, ErrValidation)

	past := clock.Add(-24 * time.Hour)
	_, err = f.svc.Update(context.Background(), alice, mine.ID, UpdateInput{Start: &past})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, "300.00", f.store.reservations[mine.ID].TotalPrice.StringFixed(2), "failed updates write nothing")
}

func TestUpdateLocations(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)

	pickup, ret := "Hotel", ""
	got, err := f.svc.Update(context.Background(), alice, d.ID, UpdateInput{PickupLocation: &pickup, ReturnLocation: &ret})
	require.NoError(t, err)
	assert.Equal(t, "Hotel", got.PickupLocation)
	assert.Equal(t, "Hotel", got.ReturnLocation)
	assert.Equal(t, "300.00", got.TotalPrice.StringFixed(2))

	empty := " "
	_, err = f.svc.Update(context.Background(), alice, d.ID, UpdateInput{PickupLocation: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Update(context.Background(), bob, d.ID, UpdateInput{PickupLocation: &pickup})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminConfirmFlipsVehicleStatus(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	notes := "called customer"
	confirmed := "Confirmed"

	got, err := f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, &confirmed, &notes)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, "called customer", got.AdminNotes)
	assert.Equal(t, model.VehicleReserved, f.store.vehicles[1].Status)
	assert.Equal(t, model.RefundNotApplicable, got.RefundStatus)
	assert.Contains(t, f.pub.types(), queue.EventReservationStatusChanged)
}

func TestAdminConfirmWithMissingVehicle(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	delete(f.store.vehicles, 1)

	inProgress := model.StatusInProgress
	got, err := f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, &inProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Nil(t, got.Vehicle)
}

func TestAdminUpdateStatusValidation(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)

	bogus := "archived"
	_, err := f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, &bogus, nil)
	assert.ErrorIs(t, err, ErrValidation)

	long := string(make([]rune, 1501))
	_, err = f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, nil, &long)
	assert.ErrorIs(t, err, ErrValidation)

	pending := model.StatusPending
	_, err = f.svc.AdminUpdateStatus(context.Background(), admin, 999, &pending, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminReactivationCannotDoubleBook(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, alice, june1, june3)
	_, err := f.svc.Cancel(context.Background(), alice, first.ID)
	require.NoError(t, err)
	f.book(t, bob, june1, june3)

	confirmed := model.StatusConfirmed
	_, err = f.svc.AdminUpdateStatus(context.Background(), admin, first.ID, &confirmed, nil)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.StatusCancelled, f.store.reservations[first.ID].Status)
}

func TestAdminCancelStampsCancelledAt(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	cancelled := model.StatusCancelled

	got, err := f.svc.AdminUpdateStatus(context.Background(), admin, d.ID, &cancelled, nil)
	require.NoError(t, err)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, model.RefundPending, got.RefundStatus)
}

func TestAdminUpdatePayment(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	_, err := f.svc.Cancel(context.Background(), alice, d.ID)
	require.NoError(t, err)

	items, _, err := f.svc.AdminList(context.Background(), model.StatusCancelled, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.RefundPending, items[0].RefundStatus)

	ref := "RF-1"
	pay, err := f.svc.AdminUpdatePayment(context.Background(), admin, d.ID, "Refunded", &ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, pay.Status)
	assert.Equal(t, "RF-1", pay.Reference)

	items, _, err = f.svc.AdminList(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, model.RefundDone, items[0].RefundStatus)

	_, err = f.svc.AdminUpdatePayment(context.Background(), admin, d.ID, "lost", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.AdminUpdatePayment(context.Background(), admin, 999, model.PaymentRefunded, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetInvoiceIsLazy(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	delete(f.store.invoices, d.ID)

	later := clock.Add(48 * time.Hour)
	f.svc.Now = func() time.Time { return later }

	inv, err := f.svc.GetInvoice(context.Background(), alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Folio(d.ID), inv.Folio)
	assert.Equal(t, model.InvoiceNumber(d.ID, later), inv.InvoiceNumber)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("300")))

	again, err := f.svc.GetInvoice(context.Background(), alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID)

	_, err = f.svc.GetInvoice(context.Background(), bob, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetInvoiceAdminReadsAnyReservation(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, june1, june3)
	delete(f.store.invoices, d.ID)

	inv, err := f.svc.GetInvoice(context.Background(), admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, inv.ReservationID)
	assert.Equal(t, model.Folio(d.ID), inv.Folio)

	own, err := f.svc.GetInvoice(context.Background(), alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, own.ID)

	_, err = f.svc.GetInvoice(context.Background(), bob, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.GetInvoice(context.Background(), admin, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackfillInvoices(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, alice, june1, june3)
	b := f.book(t, bob, june3, june3.Add(24*time.Hour))
	delete(f.store.invoices, a.ID)
	delete(f.store.invoices, b.ID)

	n, err := f.svc.BackfillInvoices(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.store.invoices, 2)

	n, err = f.svc.BackfillInvoices(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		start := june1.Add(time.Duration(i*72) * time.Hour)
		f.svc.Now = func() time.Time { return clock.Add(time.Duration(i) * time.Minute) }
		f.book(t, alice, start, start.Add(48*time.Hour))
	}
	f.book(t, bob, june1.Add(-72*time.Hour), june1.Add(-24*time.Hour))

	items, total, err := f.svc.List(context.Background(), alice, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt), "newest first")

	_, err = f.svc.Cancel(context.Background(), alice, items[0].ID)
	require.NoError(t, err)
	completed := model.StatusCompleted
	_, err = f.svc.AdminUpdateStatus(context.Background(), admin, items[1].ID, &completed, nil)
	require.NoError(t, err)

	cancelled, total, err := f.svc.List(context.Background(), alice, model.StatusCancelled, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, cancelled, 1)

	_, _, err = f.svc.List(context.Background(), alice, "unknown", 0, 0)
	assert.ErrorIs(t, err, ErrValidation)

	st, err := f.svc.Stats(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.Active)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Cancelled)
	assert.Equal(t, "300.00", st.TotalSpent.StringFixed(2))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.book(t, alice, june1, june3)

	a, err := f.svc.CheckAvailability(context.Background(), 1, june1.Add(time.Hour), june1.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, a.Available)
	assert.Equal(t, 1, a.Conflicts)

	a, err = f.svc.CheckAvailability(context.Background(), 1, june3, june3.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, a.Available)

	_, err = f.svc.CheckAvailability(context.Background(), 1, june3, june1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.CheckAvailability(context.Background(), 42, june1, june3)
	assert.ErrorIs(t, err, ErrNotFound)
}
