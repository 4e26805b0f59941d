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

// DefaultCancelWindow is the minimum time before the start of a screening
// at which a ticket may still be cancelled.
const DefaultCancelWindow = 2 * time.Hour

// CancelRequest identifies the ticket to cancel.  A non-nil UserID limits
// the request to that user's tickets; operators pass nil.
type CancelRequest struct {
	TicketID string
	UserID   *uint64
}

// CancellationService reverses a purchase: the ticket is flipped to
// cancelled, the seats return to the screening's counter and the ledger
// entries are freed.
type CancellationService struct {
	screenings ScreeningStore
	ledger     SeatLedgerStore
	tickets    TicketStore
	notifier   Notifier
	clock      Clock
	loc        *time.Location
	window     time.Duration
	metrics    *metrics.Metrics
}

type CancellationOption func(*CancellationService)

func WithCancelClock(c Clock) CancellationOption {
	return func(s *CancellationService) { s.clock = c }
}

// WithCancelWindow overrides DefaultCancelWindow.
func WithCancelWindow(d time.Duration) CancellationOption {
	return func(s *CancellationService) {
		if d >= 0 {
			s.window = d
		}
	}
}

// WithCancelLocation sets the zone screening dates and times are read in.
func WithCancelLocation(loc *time.Location) CancellationOption {
	return func(s *CancellationService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithCancelNotifier(n Notifier) CancellationOption {
	return func(s *CancellationService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithCancelMetrics(m *metrics.Metrics) CancellationOption {
	return func(s *CancellationService) { s.metrics = m }
}

func NewCancellationService(screenings ScreeningStore, ledger SeatLedgerStore, tickets TicketStore, opts ...CancellationOption) *CancellationService {
	s := &CancellationService{
		screenings: screenings,
		ledger:     ledger,
		tickets:    tickets,
		notifier:   NopNotifier{},
		clock:      SystemClock{},
		loc:        time.UTC,
		window:     DefaultCancelWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the configured cancellation window.
func (s *CancellationService) Window() time.Duration { return s.window }

// Cancel cancels an active ticket no later than the window before the
// screening starts.  Cancelling exactly at the window boundary is allowed.
func (s *CancellationService) Cancel(ctx context.Context, req CancelRequest) (ticket *model.Ticket, err error) {
	defer func() { s.metrics.Cancellation(outcomeOf(err)) }()

	t, err := s.tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("ticket %s not found", req.TicketID)
		}
		return nil, internal(err, "load ticket")
	}
	if req.UserID != nil && (t.UserID == nil || *t.UserID != *req.UserID) {
		return nil, notFound("ticket %s not found", req.TicketID)
	}
	if err := cancellable(t); err != nil {
		return nil, err
	}

	sc, err := s.screenings.GetByID(ctx, t.ScreeningID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("screening %d not found", t.ScreeningID)
		}
		return nil, internal(err, "load screening")
	}
	startsAt, err := sc.StartsAt(s.loc)
	if err != nil {
		return nil, internal(err, "screening start")
	}
	now := s.clock.Now()
	if startsAt.Sub(now) < s.window {
		return nil, conflict(ReasonTooCloseToStart, "tickets can only be cancelled up to %s before the screening", s.window)
	}

	at := now.Truncate(time.Millisecond)
	ok, err := s.tickets.MarkCancelled(ctx, t.ID, at)
	if err != nil {
		return nil, internal(err, "cancel ticket")
	}
	if !ok {
		// lost a race; report what the ticket became
		cur, gerr := s.tickets.GetByID(ctx, t.ID)
		if gerr != nil {
			return nil, internal(gerr, "reload ticket")
		}
		if cerr := cancellable(cur); cerr != nil {
			return nil, cerr
		}
		return nil, internal(nil, "ticket %s did not change", t.ID)
	}

	n := len(t.Seats)
	restored, err := s.screenings.IncrementAvailable(ctx, sc.ID, n)
	if err != nil || !restored {
		if rerr := s.tickets.RevertCancel(ctx, t.ID, at); rerr != nil {
			s.metrics.CompensationFailure("revert_cancel")
			logger.Error("cancellation compensation: ticket stays cancelled",
				zap.String("ticket_id", t.ID),
				zap.Error(rerr),
			)
		}
		if err == nil {
			err = errors.New("available seats would exceed room capacity")
		}
		return nil, internal(err, "restore available seats")
	}

	for _, seat := range t.Seats {
		if _, err := s.ledger.ReleaseIfOwned(ctx, sc.ID, seat, t.ID, now); err != nil {
			// read-repair frees the seat on the next seat map read
			s.metrics.CompensationFailure("release_seat")
			logger.Warn("cancellation: seat not released",
				zap.String("ticket_id", t.ID),
				zap.String("seat", seat),
				zap.Error(err),
			)
		}
	}

	t.Status = model.TicketCancelled
	t.CancelledAt = &at
	logger.Info("ticket cancelled",
		zap.String("ticket_id", t.ID),
		zap.Uint64("screening_id", sc.ID),
		zap.Int("seats", n),
		zap.Bool("by_operator", req.UserID == nil),
	)
	notify(ctx, "ticket_cancelled", func(ctx context.Context) error {
		return s.notifier.TicketCancelled(ctx, sc, t)
	})
	return t, nil
}

// cancellable reports why t cannot be cancelled, or nil.
func cancellable(t *model.Ticket) error {
	switch t.Status {
	case model.TicketActive:
		return nil
	case model.TicketCancelled:
		return conflict(ReasonAlreadyCancelled, "ticket is already cancelled")
	default:
		return conflict(ReasonNotCancellable, "ticket is %s and cannot be cancelled", t.Status)
	}
}
