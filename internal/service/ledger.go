package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// DefaultReadRepairGrace is how long an occupied entry may point at a
// ticket that does not exist yet, covering a purchase between claim and
// ticket insert.
const DefaultReadRepairGrace = 2 * time.Minute

// Read-repair actions recorded in metrics.
const (
	repairReconstructed = "reconstructed"
	repairFreed         = "freed"
)

// LedgerService serves seat maps and owns the raw claim/release primitives
// of the seat ledger.
type LedgerService struct {
	screenings ScreeningStore
	ledger     SeatLedgerStore
	tickets    TicketStore
	clock      Clock
	grace      time.Duration
	metrics    *metrics.Metrics
}

type LedgerOption func(*LedgerService)

func WithLedgerClock(c Clock) LedgerOption {
	return func(s *LedgerService) { s.clock = c }
}

// WithReadRepairGrace overrides DefaultReadRepairGrace.
func WithReadRepairGrace(d time.Duration) LedgerOption {
	return func(s *LedgerService) {
		if d >= 0 {
			s.grace = d
		}
	}
}

func WithLedgerMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

func NewLedgerService(screenings ScreeningStore, ledger SeatLedgerStore, tickets TicketStore, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		screenings: screenings,
		ledger:     ledger,
		tickets:    tickets,
		clock:      SystemClock{},
		grace:      DefaultReadRepairGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSeatMap returns the status of every seat that has a ledger entry.
// Seats without an entry are free.  Reading also repairs the ledger: an
// empty ledger is rebuilt from the tickets that hold seats, and occupied
// entries whose ticket was cancelled or expired (or never got written) are
// freed.
func (s *LedgerService) GetSeatMap(ctx context.Context, screeningID uint64) (model.SeatMap, error) {
	if _, err := s.screenings.GetByID(ctx, screeningID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("screening %d not found", screeningID)
		}
		return nil, internal(err, "load screening")
	}
	entries, err := s.ledger.ListByScreening(ctx, screeningID)
	if err != nil {
		return nil, internal(err, "list seat ledger")
	}
	now := s.clock.Now()
	if len(entries) == 0 {
		if err := rebuildLedger(ctx, s.ledger, s.tickets, s.metrics, screeningID, now); err != nil {
			return nil, internal(err, "reconstruct seat ledger")
		}
		// rows written concurrently may have won over the rebuilt ones
		if entries, err = s.ledger.ListByScreening(ctx, screeningID); err != nil {
			return nil, internal(err, "list seat ledger")
		}
	}

	seats := make(model.SeatMap, len(entries))
	var ticketIDs []string
	for i := range entries {
		e := &entries[i]
		seats[e.SeatID] = e.EffectiveStatus(now)
		if e.Status == model.SeatOccupied && e.TicketID != nil {
			ticketIDs = append(ticketIDs, *e.TicketID)
		}
	}
	if len(ticketIDs) == 0 {
		return seats, nil
	}

	statuses, err := s.tickets.GetStatuses(ctx, ticketIDs)
	if err != nil {
		return nil, internal(err, "load ticket statuses")
	}
	freed := 0
	for i := range entries {
		e := &entries[i]
		if e.Status != model.SeatOccupied || e.TicketID == nil {
			continue
		}
		if !s.stale(e, statuses, now) {
			continue
		}
		ok, err := s.ledger.ReleaseIfOwned(ctx, screeningID, e.SeatID, *e.TicketID, now)
		if err != nil {
			logger.Warn("read-repair release failed",
				zap.Uint64("screening_id", screeningID),
				zap.String("seat", e.SeatID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			seats[e.SeatID] = model.SeatFree
			freed++
		}
	}
	if freed > 0 {
		s.metrics.ReadRepair(repairFreed, freed)
		logger.Info("read-repair freed seats", zap.Uint64("screening_id", screeningID), zap.Int("seats", freed))
	}
	return seats, nil
}

// stale reports whether an occupied entry no longer reflects a ticket that
// holds the seat.
func (s *LedgerService) stale(e *model.SeatLedgerEntry, statuses map[string]model.TicketStatus, now time.Time) bool {
	st, ok := statuses[*e.TicketID]
	if ok {
		return !st.HoldsSeat()
	}
	// the ticket may still be in flight; only give up after the grace period
	return now.Sub(e.UpdatedAt) > s.grace
}

// ensureLedger rebuilds the ledger of a screening that has no entries at
// all, so that seat writes never overlook a ticket that still holds a seat.
func ensureLedger(ctx context.Context, ledger SeatLedgerStore, tickets TicketStore, m *metrics.Metrics, screeningID uint64, now time.Time) error {
	entries, err := ledger.ListByScreening(ctx, screeningID)
	if err != nil {
		return fmt.Errorf("list seat ledger: %w", err)
	}
	if len(entries) > 0 {
		return nil
	}
	return rebuildLedger(ctx, ledger, tickets, m, screeningID, now)
}

// rebuildLedger derives occupied entries from the tickets holding seats and
// persists them with insert-if-absent, so a concurrent writer always wins.
// Repeating it is harmless.
func rebuildLedger(ctx context.Context, ledger SeatLedgerStore, tickets TicketStore, m *metrics.Metrics, screeningID uint64, now time.Time) error {
	holding, err := tickets.ListHoldingSeats(ctx, screeningID)
	if err != nil {
		return err
	}
	inserted := 0
	for _, t := range holding {
		for _, seat := range t.Seats {
			ok, err := ledger.InsertOccupiedIfAbsent(ctx, screeningID, seat, t.ID, now)
			if err != nil {
				return fmt.Errorf("seat %s: %w", seat, err)
			}
			if ok {
				inserted++
			}
		}
	}
	if inserted > 0 {
		m.ReadRepair(repairReconstructed, inserted)
		logger.Info("seat ledger reconstructed from tickets",
			zap.Uint64("screening_id", screeningID),
			zap.Int("seats", inserted),
		)
	}
	return nil
}

// ClaimSeat marks the seat occupied by ticketID.  It reports false when the
// seat is already occupied or under maintenance.
func (s *LedgerService) ClaimSeat(ctx context.Context, screeningID uint64, seatID, ticketID string) (bool, error) {
	label, err := model.ParseSeatLabel(seatID)
	if err != nil {
		return false, validation("%v", err)
	}
	ok, err := s.ledger.Claim(ctx, screeningID, label.String(), ticketID, s.clock.Now())
	if err != nil {
		return false, internal(err, "claim seat")
	}
	return ok, nil
}

// ReleaseSeat frees the seat whatever its state.
func (s *LedgerService) ReleaseSeat(ctx context.Context, screeningID uint64, seatID string) error {
	label, err := model.ParseSeatLabel(seatID)
	if err != nil {
		return validation("%v", err)
	}
	if err := s.ledger.Release(ctx, screeningID, label.String(), s.clock.Now()); err != nil {
		return internal(err, "release seat")
	}
	return nil
}
