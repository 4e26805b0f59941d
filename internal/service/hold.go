package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// DefaultHoldTTL is how long held seats stay reserved.
const DefaultHoldTTL = 15 * time.Minute

// maxSeatsPerRequest bounds one hold or purchase.
const maxSeatsPerRequest = 10

// HoldResult describes a successful hold.
type HoldResult struct {
	ScreeningID uint64
	Seats       []string
	ExpiresAt   time.Time
	TTL         time.Duration
}

// HoldService places time-boxed soft locks on seats.  Holds are advisory:
// the claim at purchase time is what decides ownership, and an expired hold
// is read as free everywhere without a sweeper.
type HoldService struct {
	screenings ScreeningStore
	ledger     SeatLedgerStore
	tickets    TicketStore
	clock      Clock
	ttl        time.Duration
	metrics    *metrics.Metrics
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL sets the hold duration.  It is also the value reported to
// clients, so there is a single source of truth for it.
func WithHoldTTL(ttl time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithHoldClock(c Clock) HoldServiceOption {
	return func(s *HoldService) { s.clock = c }
}

func WithHoldMetrics(m *metrics.Metrics) HoldServiceOption {
	return func(s *HoldService) { s.metrics = m }
}

func NewHoldService(screenings ScreeningStore, ledger SeatLedgerStore, tickets TicketStore, opts ...HoldServiceOption) *HoldService {
	s := &HoldService{
		screenings: screenings,
		ledger:     ledger,
		tickets:    tickets,
		clock:      SystemClock{},
		ttl:        DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured hold duration.
func (s *HoldService) TTL() time.Duration { return s.ttl }

// Reserve holds every seat in seatIDs until now+TTL, or none of them.  When
// a seat cannot be held the seats already held by this call are released
// and the error names every unavailable seat.
func (s *HoldService) Reserve(ctx context.Context, screeningID uint64, seatIDs []string) (res *HoldResult, err error) {
	defer func() { s.metrics.Hold(outcomeOf(err)) }()

	seats, err := normalizeSeats(seatIDs)
	if err != nil {
		return nil, err
	}
	if _, err := loadScheduled(ctx, s.screenings, screeningID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := ensureLedger(ctx, s.ledger, s.tickets, s.metrics, screeningID, now); err != nil {
		return nil, internal(err, "reconstruct seat ledger")
	}
	expiry := now.Add(s.ttl).Truncate(time.Millisecond)
	held := make([]string, 0, len(seats))
	var unavailable []string
	var failure error
	for _, seat := range seats {
		ok, err := s.ledger.Hold(ctx, screeningID, seat, expiry, now)
		if err != nil {
			failure = err
			break
		}
		if ok {
			held = append(held, seat)
		} else {
			unavailable = append(unavailable, seat)
		}
	}
	if failure == nil && len(unavailable) == 0 {
		logger.Debug("seats held",
			zap.Uint64("screening_id", screeningID),
			zap.Strings("seats", held),
			zap.Time("expires_at", expiry),
		)
		return &HoldResult{ScreeningID: screeningID, Seats: held, ExpiresAt: expiry, TTL: s.ttl}, nil
	}

	for _, seat := range held {
		if _, err := s.ledger.ReleaseHold(ctx, screeningID, seat, &expiry, s.clock.Now()); err != nil {
			s.metrics.CompensationFailure("release_hold")
			logger.Warn("hold compensation failed",
				zap.Uint64("screening_id", screeningID),
				zap.String("seat", seat),
				zap.Error(err),
			)
		}
	}
	if failure != nil {
		return nil, internal(failure, "hold seats")
	}
	e := conflict(ReasonSeatsUnavailable, "some seats are not available")
	e.Seats = unavailable
	return nil, e
}

// Release frees the given seats if they are currently held.  Sold seats are
// left alone.  It returns the seats that were actually released.
func (s *HoldService) Release(ctx context.Context, screeningID uint64, seatIDs []string) ([]string, error) {
	seats, err := normalizeSeats(seatIDs)
	if err != nil {
		return nil, err
	}
	if _, err := s.screenings.GetByID(ctx, screeningID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("screening %d not found", screeningID)
		}
		return nil, internal(err, "load screening")
	}
	released := []string{}
	for _, seat := range seats {
		ok, err := s.ledger.ReleaseHold(ctx, screeningID, seat, nil, s.clock.Now())
		if err != nil {
			return nil, internal(err, "release hold")
		}
		if ok {
			released = append(released, seat)
		}
	}
	return released, nil
}

// loadScheduled loads a screening that must be on sale.
func loadScheduled(ctx context.Context, screenings ScreeningStore, id uint64) (*model.Screening, error) {
	sc, err := screenings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("screening %d not found", id)
		}
		return nil, internal(err, "load screening")
	}
	if sc.Status != model.ScreeningScheduled {
		return nil, conflict(ReasonNotOnSale, "screening %d is %s", id, sc.Status)
	}
	return sc, nil
}

// normalizeSeats validates and canonicalises seat labels.
func normalizeSeats(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, validation("at least one seat is required")
	}
	if len(raw) > maxSeatsPerRequest {
		return nil, validation("at most %d seats per request", maxSeatsPerRequest)
	}
	seats, err := model.NormalizeSeatLabels(raw)
	if err != nil {
		return nil, validation("%v", err)
	}
	return seats, nil
}

// outcomeOf maps an operation result onto a metrics outcome label.
func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch AsError(err).Kind {
	case KindConflict:
		return metrics.OutcomeConflict
	case KindValidation:
		return metrics.OutcomeValidation
	case KindNotFound:
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeError
}
