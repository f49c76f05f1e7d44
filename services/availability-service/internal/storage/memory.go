package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

// Memory is an in-process Store. Admission sections for the same
// (host, date) are serialised and inserts re-check overlaps under the
// store mutex, so at most one of two overlapping bookings is stored.
type Memory struct {
	now func() time.Time

	mu         sync.RWMutex
	hosts      map[string]model.Host
	eventTypes map[string]model.EventType
	rules      map[string][]model.WeeklyRule
	overrides  map[string][]model.DateOverride
	bookings   []model.Booking
	events     []outbox.Event

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		hosts:      make(map[string]model.Host),
		eventTypes: make(map[string]model.EventType),
		rules:      make(map[string][]model.WeeklyRule),
		overrides:  make(map[string][]model.DateOverride),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (m *Memory) GetHost(ctx context.Context, hostID string) (model.Host, error) {
	if err := ctx.Err(); err != nil {
		return model.Host{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hosts[hostID]
	if !ok {
		return model.Host{}, ErrNotFound
	}
	return h, nil
}

func (m *Memory) UpsertHost(ctx context.Context, h model.Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[h.ID] = h
	return nil
}

func (m *Memory) GetEventType(ctx context.Context, hostID, eventTypeID string) (model.EventType, error) {
	if err := ctx.Err(); err != nil {
		return model.EventType{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	et, ok := m.eventTypes[eventTypeID]
	if !ok || et.HostID != hostID {
		return model.EventType{}, ErrNotFound
	}
	return et, nil
}

func (m *Memory) CreateEventType(ctx context.Context, et *model.EventType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hosts[et.HostID]; !ok {
		return ErrNotFound
	}
	if et.ID == "" {
		et.ID = uuid.NewString()
	}
	if _, dup := m.eventTypes[et.ID]; dup {
		return ErrConflict
	}
	et.CreatedAt = m.now().UTC()
	m.eventTypes[et.ID] = *et
	return nil
}

func (m *Memory) ListEventTypes(ctx context.Context, hostID string, activeOnly bool) ([]model.EventType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.EventType
	for _, et := range m.eventTypes {
		if et.HostID == hostID && (et.IsActive || !activeOnly) {
			out = append(out, et)
		}
	}
	slices.SortFunc(out, func(a, b model.EventType) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) WeeklyRules(ctx context.Context, hostID string, weekday time.Weekday) ([]model.WeeklyRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.WeeklyRule
	for _, r := range m.rules[hostID] {
		if r.Weekday == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListWeeklyRules(ctx context.Context, hostID string) ([]model.WeeklyRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.rules[hostID])
	slices.SortStableFunc(out, func(a, b model.WeeklyRule) int {
		if a.Weekday != b.Weekday {
			return int(a.Weekday) - int(b.Weekday)
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return out, nil
}

func (m *Memory) ReplaceWeeklyRules(ctx context.Context, hostID string, rules []model.WeeklyRule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hosts[hostID]; !ok {
		return ErrNotFound
	}
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = uuid.NewString()
		}
		rules[i].HostID = hostID
	}
	m.rules[hostID] = slices.Clone(rules)
	return nil
}

func (m *Memory) DateOverrides(ctx context.Context, hostID string, date tzconv.Date) ([]model.DateOverride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.DateOverride
	for _, o := range m.overrides[hostID] {
		if o.Date == date {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) ListDateOverrides(ctx context.Context, hostID string, from tzconv.Date) ([]model.DateOverride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.DateOverride
	for _, o := range m.overrides[hostID] {
		if !o.Date.Before(from) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b model.DateOverride) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case b.Date.Before(a.Date):
			return 1
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return out, nil
}

func (m *Memory) AddDateOverride(ctx context.Context, o *model.DateOverride) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hosts[o.HostID]; !ok {
		return ErrNotFound
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	m.overrides[o.HostID] = append(m.overrides[o.HostID], *o)
	return nil
}

func (m *Memory) ConfirmedBookings(ctx context.Context, hostID string, from, to time.Time) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.confirmedLocked(hostID, from, to), nil
}

func (m *Memory) confirmedLocked(hostID string, from, to time.Time) []model.Booking {
	var out []model.Booking
	for _, b := range m.bookings {
		if b.HostID != hostID || b.Status != model.BookingConfirmed {
			continue
		}
		start, end := b.Blocked()
		if start.Before(to) && end.After(from) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b model.Booking) int { return a.StartAt.Compare(b.StartAt) })
	return out
}

func (m *Memory) ListBookings(ctx context.Context, hostID string, date *tzconv.Date) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.HostID == hostID && (date == nil || b.Date == *date) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b model.Booking) int { return a.StartAt.Compare(b.StartAt) })
	return out, nil
}

// CancelBooking marks a booking cancelled. Cancellation is owned elsewhere
// in production; the in-memory store exposes it for local runs and tests.
func (m *Memory) CancelBooking(hostID, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if m.bookings[i].ID == bookingID && m.bookings[i].HostID == hostID {
			m.bookings[i].Status = model.BookingCancelled
			return nil
		}
	}
	return ErrNotFound
}

// Events returns the outbox events committed so far.
func (m *Memory) Events() []outbox.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

func (m *Memory) WithAdmissionLock(ctx context.Context, hostID string, date tzconv.Date, fn func(ctx context.Context, tx Tx) error) error {
	lock := m.lockFor(hostID + "|" + date.String())
	lock.Lock()
	defer lock.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (m *Memory) lockFor(key string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

type memTx struct {
	store    *Memory
	bookings []model.Booking
	events   []outbox.Event
}

func (t *memTx) ConfirmedBookings(ctx context.Context, hostID string, from, to time.Time) ([]model.Booking, error) {
	return t.store.ConfirmedBookings(ctx, hostID, from, to)
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	b.CreatedAt = t.store.now().UTC()
	t.store.mu.RLock()
	err := t.store.overlapLocked(*b)
	t.store.mu.RUnlock()
	if err != nil {
		return err
	}
	t.bookings = append(t.bookings, *b)
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	t.events = append(t.events, evt)
	return nil
}

// commit re-checks every staged booking under the write lock, mirroring the
// exclusion constraint of the Postgres schema.
func (t *memTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range t.bookings {
		if err := s.overlapLocked(b); err != nil {
			return err
		}
	}
	s.bookings = append(s.bookings, t.bookings...)
	s.events = append(s.events, t.events...)
	return nil
}

func (m *Memory) overlapLocked(b model.Booking) error {
	if b.Status != model.BookingConfirmed {
		return nil
	}
	start, end := b.Blocked()
	if len(m.confirmedLocked(b.HostID, start, end)) > 0 {
		return ErrConflict
	}
	return nil
}
