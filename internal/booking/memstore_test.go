package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/model"
	"github.com/iliyamo/vehicle-rental/internal/queue"
)

// memStore is an in-memory Store.  Writes made through a Tx are buffered and
// applied on commit, and each vehicle has its own mutex, so it honours the
// same contract as the SQL and document adapters.
type memStore struct {
	mu           sync.Mutex
	nextID       uint64
	vehicles     map[uint64]model.Vehicle
	reservations map[uint64]model.Reservation
	payments     map[uint64]model.Payment
	invoices     map[uint64]model.Invoice

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex

	failInvoiceInsert bool
}

func newMemStore() *memStore {
	return &memStore{
		vehicles:     map[uint64]model.Vehicle{},
		reservations: map[uint64]model.Reservation{},
		payments:     map[uint64]model.Payment{},
		invoices:     map[uint64]model.Invoice{},
		locks:        map[uint64]*sync.Mutex{},
	}
}

func (m *memStore) addVehicle(v model.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
}

func (m *memStore) id() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

func (m *memStore) Vehicle(_ context.Context, id uint64) (model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return model.Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (m *memStore) Reservation(_ context.Context, id uint64) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	r, err := m.Reservation(ctx, id)
	if err != nil {
		return r, err
	}
	if r.UserID != userID {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) CountOverlapping(_ context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countOverlapping(m.reservations, nil, vehicleID, start, end, excludeID), nil
}

func countOverlapping(base, pending map[uint64]model.Reservation, vehicleID uint64, start, end time.Time, excludeID uint64) int {
	n := 0
	seen := map[uint64]bool{}
	check := func(r model.Reservation) {
		if r.ID == excludeID || r.VehicleID != vehicleID || !model.IsActiveStatus(r.Status) {
			return
		}
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			n++
		}
	}
	for id, r := range pending {
		seen[id] = true
		check(r)
	}
	for id, r := range base {
		if !seen[id] {
			check(r)
		}
	}
	return n
}

func (m *memStore) WithVehicleLock(ctx context.Context, vehicleID uint64, fn func(ctx context.Context, tx Tx) error) error {
	m.locksMu.Lock()
	l, ok := m.locks[vehicleID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[vehicleID] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	defer l.Unlock()

	tx := &memTx{
		store:        m,
		reservations: map[uint64]model.Reservation{},
		payments:     map[uint64]model.Payment{},
		invoices:     map[uint64]model.Invoice{},
		vehicleState: map[uint64]string{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range tx.reservations {
		m.reservations[id] = r
	}
	for id, p := range tx.payments {
		m.payments[id] = p
	}
	for id, inv := range tx.invoices {
		m.invoices[id] = inv
	}
	for id, st := range tx.vehicleState {
		v := m.vehicles[id]
		v.Status = st
		m.vehicles[id] = v
	}
	return nil
}

func (m *memStore) ListReservations(_ context.Context, f ListFilter) ([]model.Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Reservation
	for _, r := range m.reservations {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if f.Skip >= total {
		return []model.Reservation{}, total, nil
	}
	all = all[f.Skip:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (m *memStore) ReservationStats(_ context.Context, userID uint64) (model.ReservationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := model.ReservationStats{TotalSpent: decimal.Zero}
	for _, r := range m.reservations {
		if r.UserID != userID {
			continue
		}
		st.Total++
		switch {
		case model.IsActiveStatus(r.Status):
			st.Active++
		case r.Status == model.StatusCompleted:
			st.Completed++
		case r.Status == model.StatusCancelled:
			st.Cancelled++
		}
		if r.Status == model.StatusCompleted || r.Status == model.StatusInProgress {
			st.TotalSpent = st.TotalSpent.Add(r.TotalPrice)
		}
	}
	return st, nil
}

func (m *memStore) Payment(_ context.Context, reservationID uint64) (model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[reservationID]
	if !ok {
		return model.Payment{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) PaymentsFor(_ context.Context, ids []uint64) (map[uint64]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uint64]model.Payment{}
	for _, id := range ids {
		if p, ok := m.payments[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) UpdatePayment(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ReservationID]; !ok {
		return ErrNotFound
	}
	m.payments[p.ReservationID] = *p
	return nil
}

func (m *memStore) Invoice(_ context.Context, reservationID uint64) (model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[reservationID]
	if !ok {
		return model.Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memStore) InsertInvoice(_ context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ReservationID]; ok {
		return errors.New("duplicate invoice")
	}
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ReservationID] = *inv
	return nil
}

func (m *memStore) ReservationsWithoutInvoice(_ context.Context, limit int) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for id, r := range m.reservations {
		if _, ok := m.invoices[id]; ok {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memTx struct {
	store        *memStore
	reservations map[uint64]model.Reservation
	payments     map[uint64]model.Payment
	invoices     map[uint64]model.Invoice
	vehicleState map[uint64]string
}

func (t *memTx) Vehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	v, err := t.store.Vehicle(ctx, id)
	if err != nil {
		return v, err
	}
	if st, ok := t.vehicleState[id]; ok {
		v.Status = st
	}
	return v, nil
}

func (t *memTx) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
	if r, ok := t.reservations[id]; ok {
		return r, nil
	}
	return t.store.Reservation(ctx, id)
}

func (t *memTx) ReservationForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	r, err := t.Reservation(ctx, id)
	if err != nil {
		return r, err
	}
	if r.UserID != userID {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (t *memTx) CountOverlapping(_ context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return countOverlapping(t.store.reservations, t.reservations, vehicleID, start, end, excludeID), nil
}

func (t *memTx) InsertReservation(_ context.Context, r *model.Reservation) error {
	r.ID = t.store.id()
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p *model.Payment) error {
	p.ID = t.store.id()
	t.payments[p.ReservationID] = *p
	return nil
}

func (t *memTx) InsertInvoice(_ context.Context, inv *model.Invoice) error {
	if t.store.failInvoiceInsert {
		return errors.New("invoice insert failed")
	}
	inv.ID = t.store.id()
	t.invoices[inv.ReservationID] = *inv
	return nil
}

func (t *memTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	if _, err := t.Reservation(ctx, r.ID); err != nil {
		return err
	}
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) SetVehicleStatus(ctx context.Context, vehicleID uint64, status string) (bool, error) {
	if _, err := t.store.Vehicle(ctx, vehicleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	t.vehicleState[vehicleID] = status
	return true, nil
}

type promoMap map[uint64]model.Promotion

func (p promoMap) Get(id uint64) (model.Promotion, bool) {
	v, ok := p[id]
	return v, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
