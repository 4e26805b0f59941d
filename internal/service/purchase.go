package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// PurchaseRequest is a checkout submitted after the payment gateway
// confirmed payment.
type PurchaseRequest struct {
	ScreeningID      uint64
	Seats            []string
	Customer         model.CustomerInfo
	TicketType       string
	PaymentConfirmed bool
	Granularity      string
	UserID           *uint64
}

// PurchaseService turns seats into paid tickets.  Each step is a single
// conditional write; when a later step fails the earlier ones are undone.
type PurchaseService struct {
	screenings ScreeningStore
	ledger     SeatLedgerStore
	tickets    TicketStore
	notifier   Notifier
	clock      Clock
	metrics    *metrics.Metrics
}

type PurchaseOption func(*PurchaseService)

func WithPurchaseClock(c Clock) PurchaseOption {
	return func(s *PurchaseService) { s.clock = c }
}

func WithPurchaseNotifier(n Notifier) PurchaseOption {
	return func(s *PurchaseService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithPurchaseMetrics(m *metrics.Metrics) PurchaseOption {
	return func(s *PurchaseService) { s.metrics = m }
}

func NewPurchaseService(screenings ScreeningStore, ledger SeatLedgerStore, tickets TicketStore, opts ...PurchaseOption) *PurchaseService {
	s := &PurchaseService{
		screenings: screenings,
		ledger:     ledger,
		tickets:    tickets,
		notifier:   NopNotifier{},
		clock:      SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Purchase claims every requested seat, takes them off the screening's
// counter and records the tickets.  A seat that is already sold fails the
// whole purchase with a conflict naming that seat; nothing claimed by this
// call survives a failure.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (tickets []model.Ticket, err error) {
	seatCount := 0
	defer func() { s.metrics.Purchase(outcomeOf(err), seatCount) }()

	seats, granularity, err := validatePurchase(req)
	if err != nil {
		return nil, err
	}
	sc, err := loadScheduled(ctx, s.screenings, req.ScreeningID)
	if err != nil {
		return nil, err
	}
	if sc.AvailableSeats < len(seats) {
		return nil, conflict(ReasonSoldOut, "only %d seats left", sc.AvailableSeats)
	}

	now := s.clock.Now()
	if err := ensureLedger(ctx, s.ledger, s.tickets, s.metrics, sc.ID, now); err != nil {
		return nil, internal(err, "reconstruct seat ledger")
	}
	tickets, err = s.buildTickets(sc, seats, req, granularity, now)
	if err != nil {
		return nil, internal(err, "issue tickets")
	}
	owner := make(map[string]string, len(seats))
	for _, t := range tickets {
		for _, seat := range t.Seats {
			owner[seat] = t.ID
		}
	}

	claimed := make([]string, 0, len(seats))
	for _, seat := range seats {
		ok, err := s.ledger.Claim(ctx, sc.ID, seat, owner[seat], now)
		if err != nil {
			s.unclaim(ctx, sc.ID, claimed, owner)
			return nil, internal(err, "claim seat %s", seat)
		}
		if !ok {
			s.unclaim(ctx, sc.ID, claimed, owner)
			e := conflict(ReasonSeatsUnavailable, "seat %s is no longer available", seat)
			e.Seats = []string{seat}
			return nil, e
		}
		claimed = append(claimed, seat)
	}

	ok, err := s.screenings.DecrementAvailable(ctx, sc.ID, len(seats))
	if err != nil {
		s.unclaim(ctx, sc.ID, claimed, owner)
		return nil, internal(err, "decrement available seats")
	}
	if !ok {
		s.unclaim(ctx, sc.ID, claimed, owner)
		return nil, conflict(ReasonSoldOut, "screening %d cannot take %d more seats", sc.ID, len(seats))
	}

	if err := s.tickets.CreateBatch(ctx, tickets); err != nil {
		if ok, ierr := s.screenings.IncrementAvailable(ctx, sc.ID, len(seats)); ierr != nil || !ok {
			s.metrics.CompensationFailure("increment_available")
			logger.Error("purchase compensation: counter not restored",
				zap.Uint64("screening_id", sc.ID),
				zap.Int("seats", len(seats)),
				zap.Error(ierr),
			)
		}
		s.unclaim(ctx, sc.ID, claimed, owner)
		return nil, internal(err, "store tickets")
	}

	seatCount = len(seats)
	logger.Info("tickets purchased",
		zap.Uint64("screening_id", sc.ID),
		zap.Strings("seats", seats),
		zap.Int("tickets", len(tickets)),
	)
	notify(ctx, "tickets_purchased", func(ctx context.Context) error {
		return s.notifier.TicketsPurchased(ctx, sc, tickets)
	})
	return tickets, nil
}

// unclaim releases seats claimed by this purchase.  The release is guarded
// by the ticket id, so a seat re-sold in the meantime is untouched.
func (s *PurchaseService) unclaim(ctx context.Context, screeningID uint64, seats []string, owner map[string]string) {
	now := s.clock.Now()
	for _, seat := range seats {
		if _, err := s.ledger.ReleaseIfOwned(ctx, screeningID, seat, owner[seat], now); err != nil {
			s.metrics.CompensationFailure("release_claim")
			logger.Warn("purchase compensation: seat not released",
				zap.Uint64("screening_id", screeningID),
				zap.String("seat", seat),
				zap.Error(err),
			)
		}
	}
}

func (s *PurchaseService) buildTickets(sc *model.Screening, seats []string, req PurchaseRequest, g model.Granularity, now time.Time) ([]model.Ticket, error) {
	ticketType := NormalizeTicketType(req.TicketType)
	unit := UnitPrice(sc, ticketType)
	customer := model.CustomerInfo{
		Name:  strings.TrimSpace(req.Customer.Name),
		Email: strings.TrimSpace(req.Customer.Email),
		Phone: strings.TrimSpace(req.Customer.Phone),
	}

	groups := [][]string{seats}
	if g == model.GranularityPerSeat {
		groups = make([][]string, len(seats))
		for i, seat := range seats {
			groups[i] = []string{seat}
		}
	}
	out := make([]model.Ticket, 0, len(groups))
	for _, group := range groups {
		id, err := NewTicketID()
		if err != nil {
			return nil, err
		}
		code, err := NewTicketCode(now)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Ticket{
			ID:             id,
			ScreeningID:    sc.ID,
			Seats:          group,
			TicketType:     ticketType,
			UnitPriceCents: unit,
			PricePaidCents: unit * int64(len(group)),
			Customer:       customer,
			UserID:         req.UserID,
			Code:           code,
			Status:         model.TicketActive,
			CreatedAt:      now,
		})
	}
	return out, nil
}

func validatePurchase(req PurchaseRequest) ([]string, model.Granularity, error) {
	seats, err := normalizeSeats(req.Seats)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(req.Customer.Name) == "" || strings.TrimSpace(req.Customer.Email) == "" {
		return nil, "", validation("customer name and email are required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Customer.Email)); err != nil {
		return nil, "", validation("invalid customer email")
	}
	if !req.PaymentConfirmed {
		return nil, "", validation("payment has not been confirmed")
	}
	g, err := model.ParseGranularity(strings.ToLower(strings.TrimSpace(req.Granularity)))
	if err != nil {
		return nil, "", validation("%v", err)
	}
	return seats, g, nil
}
