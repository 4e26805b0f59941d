package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// fixedClock is a settable Clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type ledgerKey struct {
	screening uint64
	seat      string
}

// memStore implements every store port in memory.  Each method takes the
// mutex for its whole body, which mirrors the single-row atomicity of the
// MySQL statements and nothing more.
type memStore struct {
	mu         sync.Mutex
	movies     map[uint64]model.Movie
	rooms      map[uint64]model.Room
	screenings map[uint64]model.Screening
	ledger     map[ledgerKey]model.SeatLedgerEntry
	tickets    map[string]model.Ticket
	nextID     uint64

	// fault injection
	failCreateBatch error
	failIncrement   error
	failHoldOn      string
	failReleaseOwn  error
	statusesErr     error
}

func newMemStore() *memStore {
	return &memStore{
		movies:     map[uint64]model.Movie{},
		rooms:      map[uint64]model.Room{},
		screenings: map[uint64]model.Screening{},
		ledger:     map[ledgerKey]model.SeatLedgerEntry{},
		tickets:    map[string]model.Ticket{},
		nextID:     100,
	}
}

func (m *memStore) addMovie(mv model.Movie) { m.movies[mv.ID] = mv }
func (m *memStore) addRoom(r model.Room)    { m.rooms[r.ID] = r }
func (m *memStore) addScreening(s model.Screening) {
	m.screenings[s.ID] = s
}

func (m *memStore) screening(id uint64) model.Screening {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screenings[id]
}

func (m *memStore) entry(screeningID uint64, seat string) (model.SeatLedgerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.ledger[ledgerKey{screeningID, seat}]
	return e, ok
}

func (m *memStore) ticket(id string) model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[id]
}

// activeSeats counts the seats held by active or used tickets.
func (m *memStore) activeSeats(screeningID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickets {
		if t.ScreeningID == screeningID && t.Status.HoldsSeat() {
			n += len(t.Seats)
		}
	}
	return n
}

// --- ScreeningStore

func (m *memStore) Create(_ context.Context, s *model.Screening) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.screenings[s.ID] = *s
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) ListByRoomAndDates(_ context.Context, roomID uint64, dates []string) ([]model.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, d := range dates {
		want[d] = true
	}
	var out []model.Screening
	for _, s := range m.screenings {
		if s.RoomID == roomID && want[s.Date] && s.Status != model.ScreeningCancelled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uint64, from, to model.ScreeningStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok || s.Status != from {
		return repository.ErrNoChange
	}
	s.Status = to
	m.screenings[id] = s
	return nil
}

func (m *memStore) DecrementAvailable(_ context.Context, id uint64, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok || s.Status != model.ScreeningScheduled || s.AvailableSeats < n {
		return false, nil
	}
	s.AvailableSeats -= n
	m.screenings[id] = s
	return true, nil
}

func (m *memStore) IncrementAvailable(_ context.Context, id uint64, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncrement != nil {
		return false, m.failIncrement
	}
	s, ok := m.screenings[id]
	if !ok || s.AvailableSeats+n > m.rooms[s.RoomID].Capacity {
		return false, nil
	}
	s.AvailableSeats += n
	m.screenings[id] = s
	return true, nil
}

func (m *memStore) SearchListings(_ context.Context, q repository.ScreeningSearchQuery) ([]repository.ScreeningListing, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ScreeningListing
	for _, s := range m.screenings {
		if q.FromDate != "" && s.Date < q.FromDate {
			continue
		}
		if q.Date != "" && s.Date != q.Date {
			continue
		}
		out = append(out, repository.ScreeningListing{ID: s.ID, Date: s.Date, StartTime: s.StartTime})
	}
	return out, int64(len(out)), nil
}

// --- SeatLedgerStore

func (m *memStore) ListByScreening(_ context.Context, screeningID uint64) ([]model.SeatLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SeatLedgerEntry
	for k, e := range m.ledger {
		if k.screening == screeningID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

func (m *memStore) InsertOccupiedIfAbsent(_ context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{screeningID, seatID}
	if _, ok := m.ledger[k]; ok {
		return false, nil
	}
	tid := ticketID
	m.ledger[k] = model.SeatLedgerEntry{ScreeningID: screeningID, SeatID: seatID, Status: model.SeatOccupied, TicketID: &tid, Version: 1, UpdatedAt: now}
	return true, nil
}

// upsert applies next when the current entry is absent or claimable.
func (m *memStore) upsert(screeningID uint64, seatID string, next model.SeatLedgerEntry) bool {
	k := ledgerKey{screeningID, seatID}
	cur, ok := m.ledger[k]
	if ok && !cur.Status.Claimable() {
		return false
	}
	next.ScreeningID, next.SeatID = screeningID, seatID
	next.Version = cur.Version + 1
	m.ledger[k] = next
	return true
}

func (m *memStore) Claim(_ context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tid := ticketID
	return m.upsert(screeningID, seatID, model.SeatLedgerEntry{Status: model.SeatOccupied, TicketID: &tid, UpdatedAt: now}), nil
}

func (m *memStore) Hold(_ context.Context, screeningID uint64, seatID string, expiry, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHoldOn == seatID {
		return false, errors.New("hold: connection reset")
	}
	exp := expiry
	return m.upsert(screeningID, seatID, model.SeatLedgerEntry{Status: model.SeatReserved, ReservationExpiry: &exp, UpdatedAt: now}), nil
}

func (m *memStore) free(k ledgerKey, cur model.SeatLedgerEntry, now time.Time) {
	m.ledger[k] = model.SeatLedgerEntry{ScreeningID: k.screening, SeatID: k.seat, Status: model.SeatFree, Version: cur.Version + 1, UpdatedAt: now}
}

func (m *memStore) Release(_ context.Context, screeningID uint64, seatID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{screeningID, seatID}
	if cur, ok := m.ledger[k]; ok && cur.Status != model.SeatFree {
		m.free(k, cur, now)
	}
	return nil
}

func (m *memStore) ReleaseIfOwned(_ context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReleaseOwn != nil {
		return false, m.failReleaseOwn
	}
	k := ledgerKey{screeningID, seatID}
	cur, ok := m.ledger[k]
	if !ok || cur.Status != model.SeatOccupied || cur.TicketID == nil || *cur.TicketID != ticketID {
		return false, nil
	}
	m.free(k, cur, now)
	return true, nil
}

func (m *memStore) ReleaseHold(_ context.Context, screeningID uint64, seatID string, expiry *time.Time, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{screeningID, seatID}
	cur, ok := m.ledger[k]
	if !ok || cur.Status != model.SeatReserved {
		return false, nil
	}
	if expiry != nil && (cur.ReservationExpiry == nil || !cur.ReservationExpiry.Equal(*expiry)) {
		return false, nil
	}
	m.free(k, cur, now)
	return true, nil
}

// --- TicketStore

func (m *memStore) CreateBatch(_ context.Context, tickets []model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateBatch != nil {
		return m.failCreateBatch
	}
	for _, t := range tickets {
		if _, dup := m.tickets[t.ID]; dup {
			return repository.ErrDuplicate
		}
	}
	for _, t := range tickets {
		m.tickets[t.ID] = t
	}
	return nil
}

func (m *memStore) getTicket(id string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) listTickets(match func(model.Ticket) bool) []model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.tickets {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) getStatuses(ids []string) (map[string]model.TicketStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusesErr != nil {
		return nil, m.statusesErr
	}
	out := map[string]model.TicketStatus{}
	for _, id := range ids {
		if t, ok := m.tickets[id]; ok {
			out[id] = t.Status
		}
	}
	return out, nil
}

func (m *memStore) markCancelled(id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != model.TicketActive {
		return false, nil
	}
	t.Status = model.TicketCancelled
	t.CancelledAt = &at
	m.tickets[id] = t
	return true, nil
}

func (m *memStore) revertCancel(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != model.TicketCancelled || t.CancelledAt == nil || !t.CancelledAt.Equal(at) {
		return repository.ErrNoChange
	}
	t.Status = model.TicketActive
	t.CancelledAt = nil
	m.tickets[id] = t
	return nil
}

// ticketView adapts memStore to TicketStore; GetByID clashes with the
// screening store method of the same name.
type ticketView struct{ *memStore }

func (v ticketView) GetByID(_ context.Context, id string) (*model.Ticket, error) {
	return v.getTicket(id)
}

func (v ticketView) ListHoldingSeats(_ context.Context, screeningID uint64) ([]model.Ticket, error) {
	return v.listTickets(func(t model.Ticket) bool { return t.ScreeningID == screeningID && t.Status.HoldsSeat() }), nil
}

func (v ticketView) ListByScreening(_ context.Context, screeningID uint64) ([]model.Ticket, error) {
	return v.listTickets(func(t model.Ticket) bool { return t.ScreeningID == screeningID }), nil
}

func (v ticketView) ListByUser(_ context.Context, userID uint64, limit, offset int) ([]model.Ticket, error) {
	all := v.listTickets(func(t model.Ticket) bool { return t.UserID != nil && *t.UserID == userID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (v ticketView) GetStatuses(_ context.Context, ids []string) (map[string]model.TicketStatus, error) {
	return v.getStatuses(ids)
}

func (v ticketView) MarkCancelled(_ context.Context, id string, at time.Time) (bool, error) {
	return v.markCancelled(id, at)
}

func (v ticketView) RevertCancel(_ context.Context, id string, at time.Time) error {
	return v.revertCancel(id, at)
}

// roomView and movieView resolve the same GetByID clash.
type roomView struct{ *memStore }

func (v roomView) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (v roomView) UpdateStatus(_ context.Context, id uint64, status model.RoomStatus, after string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.rooms[id]
	if !ok {
		return repository.ErrNotFound
	}
	if status.RequiresIdleSchedule() {
		for _, s := range v.screenings {
			if s.RoomID == id && s.Status == model.ScreeningScheduled && s.Date+" "+s.StartTime+":00" > after {
				return repository.ErrConflict
			}
		}
	}
	r.Status = status
	v.rooms[id] = r
	return nil
}

type movieView struct{ *memStore }

func (v movieView) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	mv, ok := v.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &mv, nil
}

var (
	_ ScreeningStore  = (*memStore)(nil)
	_ SeatLedgerStore = (*memStore)(nil)
	_ TicketStore     = ticketView{}
	_ RoomStore       = roomView{}
	_ MovieStore      = movieView{}
)

// recordingNotifier captures notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	purchased [][]model.Ticket
	cancelled []string
	err       error
}

func (n *recordingNotifier) TicketsPurchased(_ context.Context, _ *model.Screening, tickets []model.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchased = append(n.purchased, tickets)
	return n.err
}

func (n *recordingNotifier) TicketCancelled(_ context.Context, _ *model.Screening, t *model.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, t.ID)
	return n.err
}

// fixture wires a store with one movie, one room and one scheduled
// screening tomorrow at 20:00.
type fixture struct {
	store     *memStore
	clock     *fixedClock
	screening model.Screening
	room      model.Room
}

var baseNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	st := newMemStore()
	room := model.Room{ID: 1, Name: "Hall 1", Capacity: 100, HasVIP: true, Has3D: true, Status: model.RoomActive}
	st.addRoom(room)
	st.addMovie(model.Movie{ID: 7, Title: "Arrival", DurationMinutes: 130})
	end := "22:10"
	sc := model.Screening{
		ID: 1, MovieID: 7, RoomID: 1,
		Date: "2025-06-02", StartTime: "20:00", EndTime: &end,
		PriceRegularCents: 1000, PriceVIPCents: 1500,
		Format: "2D", AvailableSeats: 100, Status: model.ScreeningScheduled,
	}
	st.addScreening(sc)
	return &fixture{store: st, clock: newClock(baseNow), screening: sc, room: room}
}

func (f *fixture) tickets() TicketStore { return ticketView{f.store} }

func (f *fixture) purchaseService(opts ...PurchaseOption) *PurchaseService {
	opts = append([]PurchaseOption{WithPurchaseClock(f.clock)}, opts...)
	return NewPurchaseService(f.store, f.store, f.tickets(), opts...)
}

func (f *fixture) holdService(opts ...HoldServiceOption) *HoldService {
	opts = append([]HoldServiceOption{WithHoldClock(f.clock)}, opts...)
	return NewHoldService(f.store, f.store, f.tickets(), opts...)
}

func (f *fixture) ledgerService(opts ...LedgerOption) *LedgerService {
	opts = append([]LedgerOption{WithLedgerClock(f.clock)}, opts...)
	return NewLedgerService(f.store, f.store, f.tickets(), opts...)
}

func (f *fixture) cancellationService(opts ...CancellationOption) *CancellationService {
	opts = append([]CancellationOption{WithCancelClock(f.clock)}, opts...)
	return NewCancellationService(f.store, f.store, f.tickets(), opts...)
}

func (f *fixture) catalogService() *CatalogService {
	return NewCatalogService(f.store, roomView{f.store}, movieView{f.store}, WithCatalogClock(f.clock))
}

func purchaseReq(screeningID uint64, seats ...string) PurchaseRequest {
	return PurchaseRequest{
		ScreeningID:      screeningID,
		Seats:            seats,
		Customer:         model.CustomerInfo{Name: "Ada Lovelace", Email: "ada@example.com"},
		PaymentConfirmed: true,
	}
}
