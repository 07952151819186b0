// Package booking implements the reservation engine: availability checks,
// pricing and the reservation lifecycle, independent of the storage adapter
// underneath.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/vehicle-rental/internal/model"
	"github.com/iliyamo/vehicle-rental/internal/queue"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
	maxAdminNotes    = 1500
)

// Publisher delivers reservation events after a change has committed.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Service is the reservation lifecycle manager.  Every mutating operation on
// a reservation runs under the lock of its vehicle, so the overlap check and
// the write that depends on it cannot interleave with another booking of the
// same vehicle.
type Service struct {
	store    Store
	promos   PromotionLookup
	pub      Publisher
	log      *logrus.Logger
	currency string

	// Now returns the current time in UTC.
	Now func() time.Time
}

// NewService wires a Service.  promos and pub may be nil: without promotions
// every promotion id is rejected, without a publisher no events are sent.
func NewService(store Store, promos PromotionLookup, pub Publisher, log *logrus.Logger, currency string) *Service {
	if store == nil {
		panic("nil store passed to NewService")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if currency == "" {
		currency = "MXN"
	}
	return &Service{
		store:    store,
		promos:   promos,
		pub:      pub,
		log:      log,
		currency: currency,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is a booking request.
type CreateInput struct {
	VehicleID        uint64
	Start            time.Time
	End              time.Time
	PickupLocation   string
	ReturnLocation   string
	PromotionID      *uint64
	PaymentMethod    string
	PaymentReference string
	PaymentDetails   string
	Notes            string
}

// Create books a vehicle.  The reservation, its payment and its invoice are
// written in one transaction under the vehicle lock.
func (s *Service) Create(ctx context.Context, p Principal, in CreateInput) (model.ReservationDetail, error) {
	now := s.Now()
	start, end := in.Start.UTC(), in.End.UTC()
	if !end.After(start) {
		return model.ReservationDetail{}, Validation("end date must be after start date")
	}
	if !start.After(now) {
		return model.ReservationDetail{}, Validation("start date must be in the future")
	}
	pickup := strings.TrimSpace(in.PickupLocation)
	if pickup == "" {
		return model.ReservationDetail{}, Validation("pickup location is required")
	}
	ret := strings.TrimSpace(in.ReturnLocation)
	if ret == "" {
		ret = pickup
	}
	method, ok := model.NormalizePaymentMethod(in.PaymentMethod)
	if !ok {
		return model.ReservationDetail{}, Validation("unsupported payment method")
	}
	promo, err := s.resolvePromotion(in.PromotionID, now)
	if err != nil {
		return model.ReservationDetail{}, err
	}

	var (
		res model.Reservation
		pay model.Payment
		inv model.Invoice
		veh model.Vehicle
	)
	err = s.store.WithVehicleLock(ctx, in.VehicleID, func(ctx context.Context, tx Tx) error {
		v, err := activeVehicle(ctx, tx, in.VehicleID)
		if err != nil {
			return err
		}
		ok, err := IsAvailable(ctx, tx, v.ID, start, end, 0)
		if err != nil {
			return err
		}
		if !ok {
			return Conflict("vehicle is not available for the selected dates")
		}
		q, err := ComputePrice(v, start, end, promo, now)
		if err != nil {
			return err
		}

		res = model.Reservation{
			UserID:         p.UserID,
			VehicleID:      v.ID,
			StartDate:      start,
			EndDate:        end,
			PickupLocation: pickup,
			ReturnLocation: ret,
			TotalDays:      q.TotalDays,
			PricePerDay:    q.PricePerDay,
			TotalPrice:     q.TotalPrice,
			Status:         model.StatusPending,
			Notes:          appendNote(strings.TrimSpace(in.Notes), q.PromotionNote),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.InsertReservation(ctx, &res); err != nil {
			return err
		}
		pay = model.Payment{
			ReservationID: res.ID,
			UserID:        p.UserID,
			Method:        method,
			Amount:        res.TotalPrice,
			Currency:      s.currency,
			Status:        model.PaymentAccepted,
			Reference:     strings.TrimSpace(in.PaymentReference),
			Details:       strings.TrimSpace(in.PaymentDetails),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertPayment(ctx, &pay); err != nil {
			return err
		}
		inv = model.NewInvoice(res, s.currency, now)
		if err := tx.InsertInvoice(ctx, &inv); err != nil {
			return err
		}
		veh = v
		return nil
	})
	if err != nil {
		s.logFailure(err, "create reservation", logrus.Fields{"vehicle_id": in.VehicleID, "user_id": p.UserID})
		return model.ReservationDetail{}, err
	}

	s.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"vehicle_id":     res.VehicleID,
		"user_id":        res.UserID,
		"total_price":    res.TotalPrice.StringFixed(2),
	}).Info("reservation created")
	s.publish(ctx, queue.EventReservationCreated, res, "")

	vs, is, ps := veh.Summary(), inv.Summary(), pay.Summary()
	return model.ReservationDetail{Reservation: res, Vehicle: &vs, Invoice: &is, Payment: &ps}, nil
}

// Get returns the caller's reservation with its vehicle, invoice and payment.
func (s *Service) Get(ctx context.Context, p Principal, id uint64) (model.ReservationDetail, error) {
	r, err := ownedReservation(ctx, s.store, p, id)
	if err != nil {
		return model.ReservationDetail{}, err
	}
	return s.enrich(ctx, r)
}

// List returns a page of the caller's reservations, newest first, with the
// total number matching the filter.
func (s *Service) List(ctx context.Context, p Principal, status string, skip, limit int) ([]model.Reservation, int, error) {
	f, err := newListFilter(status, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	f.UserID = p.UserID
	return s.store.ListReservations(ctx, f)
}

// AdminList returns a page of every user's reservations together with their
// payment and refund status.
func (s *Service) AdminList(ctx context.Context, status string, skip, limit int) ([]model.ReservationDetail, int, error) {
	f, err := newListFilter(status, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	items, total, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint64, 0, len(items))
	for _, r := range items {
		ids = append(ids, r.ID)
	}
	payments, err := s.store.PaymentsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.ReservationDetail, 0, len(items))
	for _, r := range items {
		d := model.ReservationDetail{Reservation: r}
		if pay, ok := payments[r.ID]; ok {
			ps := pay.Summary()
			d.Payment = &ps
			d.RefundStatus = model.RefundStatus(r.Status, &pay)
		} else {
			d.RefundStatus = model.RefundStatus(r.Status, nil)
		}
		out = append(out, d)
	}
	return out, total, nil
}

// Stats summarizes the caller's reservations.
func (s *Service) Stats(ctx context.Context, p Principal) (model.ReservationStats, error) {
	return s.store.ReservationStats(ctx, p.UserID)
}

// UpdateInput carries the owner-editable fields.  Nil fields are left
// unchanged.
type UpdateInput struct {
	Start          *time.Time
	End            *time.Time
	PickupLocation *string
	ReturnLocation *string
	Notes          *string
}

// Update edits a pending reservation.  New dates are re-checked against
// other reservations and re-priced at the vehicle's current daily rate; a
// promotion applied at creation is not re-applied.
func (s *Service) Update(ctx context.Context, p Principal, id uint64, in UpdateInput) (model.ReservationDetail, error) {
	now := s.Now()
	cur, err := ownedReservation(ctx, s.store, p, id)
	if err != nil {
		return model.ReservationDetail{}, err
	}

	var out model.Reservation
	err = s.store.WithVehicleLock(ctx, cur.VehicleID, func(ctx context.Context, tx Tx) error {
		r, err := ownedReservation(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if r.Status != model.StatusPending {
			return InvalidState("only pending reservations can be modified")
		}

		start, end := r.StartDate, r.EndDate
		if in.Start != nil {
			start = in.Start.UTC()
		}
		if in.End != nil {
			end = in.End.UTC()
		}
		if !start.Equal(r.StartDate) || !end.Equal(r.EndDate) {
			if !end.After(start) {
				return Validation("end date must be after start date")
			}
			if !start.After(now) {
				return Validation("start date must be in the future")
			}
			v, err := activeVehicle(ctx, tx, r.VehicleID)
			if err != nil {
				return err
			}
			ok, err := IsAvailable(ctx, tx, v.ID, start, end, r.ID)
			if err != nil {
				return err
			}
			if !ok {
				return Conflict("vehicle is not available for the selected dates")
			}
			q, err := ComputePrice(v, start, end, nil, now)
			if err != nil {
				return err
			}
			r.StartDate, r.EndDate = start, end
			r.TotalDays = q.TotalDays
			r.PricePerDay = q.PricePerDay
			r.TotalPrice = q.TotalPrice
		}
		if in.PickupLocation != nil {
			pickup := strings.TrimSpace(*in.PickupLocation)
			if pickup == "" {
				return Validation("pickup location cannot be empty")
			}
			r.PickupLocation = pickup
		}
		if in.ReturnLocation != nil {
			r.ReturnLocation = strings.TrimSpace(*in.ReturnLocation)
			if r.ReturnLocation == "" {
				r.ReturnLocation = r.PickupLocation
			}
		}
		if in.Notes != nil {
			r.Notes = strings.TrimSpace(*in.Notes)
		}
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, &r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		s.logFailure(err, "update reservation", logrus.Fields{"reservation_id": id, "user_id": p.UserID})
		return model.ReservationDetail{}, err
	}
	s.log.WithFields(logrus.Fields{"reservation_id": out.ID, "total_price": out.TotalPrice.StringFixed(2)}).Info("reservation updated")
	return s.enrich(ctx, out)
}

// Cancel cancels the caller's reservation from any non-terminal status.  The
// payment is left untouched; refunds are handled by admins.
func (s *Service) Cancel(ctx context.Context, p Principal, id uint64) (model.Reservation, error) {
	now := s.Now()
	cur, err := ownedReservation(ctx, s.store, p, id)
	if err != nil {
		return model.Reservation{}, err
	}

	var (
		out  model.Reservation
		prev string
	)
	err = s.store.WithVehicleLock(ctx, cur.VehicleID, func(ctx context.Context, tx Tx) error {
		r, err := ownedReservation(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, model.StatusCancelled) {
			return InvalidState("reservation is already " + r.Status)
		}
		prev = r.Status
		r.Status = model.StatusCancelled
		r.CancelledAt = &now
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, &r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		s.logFailure(err, "cancel reservation", logrus.Fields{"reservation_id": id, "user_id": p.UserID})
		return model.Reservation{}, err
	}
	s.log.WithFields(logrus.Fields{"reservation_id": out.ID, "previous_status": prev}).Info("reservation cancelled")
	s.publish(ctx, queue.EventReservationCancelled, out, prev)
	return out, nil
}

// AdminUpdateStatus sets the status and/or admin notes of any reservation.
// The status must belong to the enumeration but may be any member of it.
// Reactivating a reservation is refused when its range is taken meanwhile.
// Confirming or starting a reservation marks its vehicle reserved when the
// vehicle still exists.
func (s *Service) AdminUpdateStatus(ctx context.Context, admin Principal, id uint64, status, adminNotes *string) (model.ReservationDetail, error) {
	now := s.Now()
	var next string
	if status != nil {
		next = strings.ToLower(strings.TrimSpace(*status))
		if !model.ValidReservationStatus(next) {
			return model.ReservationDetail{}, Validation("invalid reservation status")
		}
	}
	if adminNotes != nil && utf8.RuneCountInString(*adminNotes) > maxAdminNotes {
		return model.ReservationDetail{}, Validation("admin notes must be at most 1500 characters")
	}
	cur, err := s.store.Reservation(ctx, id)
	if err != nil {
		return model.ReservationDetail{}, notFoundAs(err, "reservation not found")
	}

	var (
		out  model.Reservation
		prev string
	)
	err = s.store.WithVehicleLock(ctx, cur.VehicleID, func(ctx context.Context, tx Tx) error {
		r, err := tx.Reservation(ctx, id)
		if err != nil {
			return notFoundAs(err, "reservation not found")
		}
		prev = r.Status
		if next != "" && next != r.Status {
			if IsTerminal(r.Status) && model.IsActiveStatus(next) {
				n, err := tx.CountOverlapping(ctx, r.VehicleID, r.StartDate, r.EndDate, r.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					return Conflict("vehicle is already booked for this reservation's dates")
				}
			}
			r.Status = next
			if next == model.StatusCancelled && r.CancelledAt == nil {
				r.CancelledAt = &now
			}
		}
		if adminNotes != nil {
			r.AdminNotes = strings.TrimSpace(*adminNotes)
		}
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, &r); err != nil {
			return err
		}
		if next == model.StatusConfirmed || next == model.StatusInProgress {
			found, err := tx.SetVehicleStatus(ctx, r.VehicleID, model.VehicleReserved)
			if err != nil {
				return err
			}
			if !found {
				s.log.WithFields(logrus.Fields{"reservation_id": r.ID, "vehicle_id": r.VehicleID}).Warn("vehicle missing, status flip skipped")
			}
		}
		out = r
		return nil
	})
	if err != nil {
		s.logFailure(err, "admin update reservation", logrus.Fields{"reservation_id": id, "admin_id": admin.UserID})
		return model.ReservationDetail{}, err
	}
	if out.Status != prev {
		s.log.WithFields(logrus.Fields{
			"reservation_id":  out.ID,
			"admin_id":        admin.UserID,
			"previous_status": prev,
			"status":          out.Status,
		}).Info("reservation status changed")
		s.publish(ctx, queue.EventReservationStatusChanged, out, prev)
	}
	d, err := s.enrich(ctx, out)
	if err != nil {
		return model.ReservationDetail{}, err
	}
	var pay *model.Payment
	if d.Payment != nil {
		pay = &model.Payment{Status: d.Payment.Status}
	}
	d.RefundStatus = model.RefundStatus(d.Status, pay)
	return d, nil
}

// AdminUpdatePayment records a payment outcome such as a refund.
func (s *Service) AdminUpdatePayment(ctx context.Context, admin Principal, reservationID uint64, status string, reference *string) (model.Payment, error) {
	st := strings.ToLower(strings.TrimSpace(status))
	if !model.ValidPaymentStatus(st) {
		return model.Payment{}, Validation("invalid payment status")
	}
	if _, err := s.store.Reservation(ctx, reservationID); err != nil {
		return model.Payment{}, notFoundAs(err, "reservation not found")
	}
	pay, err := s.store.Payment(ctx, reservationID)
	if err != nil {
		return model.Payment{}, notFoundAs(err, "payment not found")
	}
	pay.Status = st
	if reference != nil {
		pay.Reference = strings.TrimSpace(*reference)
	}
	pay.UpdatedAt = s.Now()
	if err := s.store.UpdatePayment(ctx, &pay); err != nil {
		s.logFailure(err, "admin update payment", logrus.Fields{"reservation_id": reservationID, "admin_id": admin.UserID})
		return model.Payment{}, err
	}
	s.log.WithFields(logrus.Fields{"reservation_id": reservationID, "payment_status": st}).Info("payment status changed")
	return pay, nil
}

// GetInvoice returns the invoice of the caller's reservation, issuing it if
// it does not exist yet.  Admins may read the invoice of any reservation.
func (s *Service) GetInvoice(ctx context.Context, p Principal, id uint64) (model.Invoice, error) {
	var (
		r   model.Reservation
		err error
	)
	if p.IsAdmin() {
		r, err = s.store.Reservation(ctx, id)
		err = notFoundAs(err, "reservation not found")
	} else {
		r, err = ownedReservation(ctx, s.store, p, id)
	}
	if err != nil {
		return model.Invoice{}, err
	}
	inv, _, err := s.EnsureInvoice(ctx, r)
	return inv, err
}

// EnsureInvoice returns the invoice of r, creating it when missing.  created
// reports whether this call issued it.
func (s *Service) EnsureInvoice(ctx context.Context, r model.Reservation) (inv model.Invoice, created bool, err error) {
	inv, err = s.store.Invoice(ctx, r.ID)
	if err == nil {
		return inv, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Invoice{}, false, err
	}
	inv = model.NewInvoice(r, s.currency, s.Now())
	if err := s.store.InsertInvoice(ctx, &inv); err != nil {
		// lost a race with another issuer
		if existing, rerr := s.store.Invoice(ctx, r.ID); rerr == nil {
			return existing, false, nil
		}
		return model.Invoice{}, false, err
	}
	return inv, true, nil
}

// BackfillInvoices issues invoices for up to limit reservations that lack
// one and returns how many were created.
func (s *Service) BackfillInvoices(ctx context.Context, limit int) (int, error) {
	rs, err := s.store.ReservationsWithoutInvoice(ctx, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rs {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		_, created, err := s.EnsureInvoice(ctx, r)
		if err != nil {
			s.log.WithError(err).WithField("reservation_id", r.ID).Warn("invoice backfill failed")
			continue
		}
		if created {
			n++
		}
	}
	return n, nil
}

// ReservationByID loads any reservation without an ownership check.  It is
// used by collaborators that authorize by other means, such as a folio.
func (s *Service) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := s.store.Reservation(ctx, id)
	if err != nil {
		return model.Reservation{}, notFoundAs(err, "reservation not found")
	}
	return r, nil
}

func (s *Service) resolvePromotion(id *uint64, now time.Time) (*model.Promotion, error) {
	if id == nil {
		return nil, nil
	}
	if s.promos == nil {
		return nil, Validation("promotion not found")
	}
	promo, ok := s.promos.Get(*id)
	if !ok {
		return nil, Validation("promotion not found")
	}
	if !promo.InEffect(now) {
		return nil, Validation("promotion is not in effect")
	}
	return &promo, nil
}

func (s *Service) enrich(ctx context.Context, r model.Reservation) (model.ReservationDetail, error) {
	d := model.ReservationDetail{Reservation: r}
	if v, err := s.store.Vehicle(ctx, r.VehicleID); err == nil {
		vs := v.Summary()
		d.Vehicle = &vs
	} else if !errors.Is(err, ErrNotFound) {
		return d, err
	}
	if inv, err := s.store.Invoice(ctx, r.ID); err == nil {
		is := inv.Summary()
		d.Invoice = &is
	} else if !errors.Is(err, ErrNotFound) {
		return d, err
	}
	if pay, err := s.store.Payment(ctx, r.ID); err == nil {
		ps := pay.Summary()
		d.Payment = &ps
	} else if !errors.Is(err, ErrNotFound) {
		return d, err
	}
	return d, nil
}

func (s *Service) publish(ctx context.Context, typ string, r model.Reservation, prev string) {
	if s.pub == nil {
		return
	}
	ev := queue.ReservationEvent{
		EventID:        queue.NewEventID(),
		Type:           typ,
		ReservationID:  r.ID,
		Folio:          model.Folio(r.ID),
		UserID:         r.UserID,
		VehicleID:      r.VehicleID,
		Status:         r.Status,
		PreviousStatus: prev,
		StartDate:      queue.FormatTime(r.StartDate),
		EndDate:        queue.FormatTime(r.EndDate),
		TotalPrice:     r.TotalPrice,
		OccurredAt:     queue.FormatTime(s.Now()),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.pub.Publish(pctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"reservation_id": r.ID, "event": typ}).Warn("publish reservation event failed")
	}
}

// logFailure logs infrastructure errors; domain errors are the caller's
// business and are not logged.
func (s *Service) logFailure(err error, op string, fields logrus.Fields) {
	if KindOf(err) != "" {
		return
	}
	s.log.WithError(err).WithFields(fields).Error(op + " failed")
}

func ownedReservation(ctx context.Context, q Querier, p Principal, id uint64) (model.Reservation, error) {
	r, err := q.ReservationForUser(ctx, id, p.UserID)
	if err != nil {
		return model.Reservation{}, notFoundAs(err, "reservation not found")
	}
	return r, nil
}

func activeVehicle(ctx context.Context, q Querier, id uint64) (model.Vehicle, error) {
	v, err := q.Vehicle(ctx, id)
	if err != nil {
		return model.Vehicle{}, notFoundAs(err, "vehicle not found")
	}
	if !v.IsActive {
		return model.Vehicle{}, NotFound("vehicle not found or inactive")
	}
	return v, nil
}

// notFoundAs replaces a bare ErrNotFound with a descriptive one and passes
// other errors through.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return NotFound(msg)
	}
	return err
}

func newListFilter(status string, skip, limit int) (ListFilter, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !model.ValidReservationStatus(status) {
		return ListFilter{}, Validation("invalid status filter")
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return ListFilter{Status: status, Skip: skip, Limit: limit}, nil
}
