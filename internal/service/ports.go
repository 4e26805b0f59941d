package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// The stores below are implemented by the MySQL repositories.  Each write
// is a single conditional statement and reports through its bool (or
// repository.ErrNoChange) whether the guard held.

type ScreeningStore interface {
	Create(ctx context.Context, s *model.Screening) error
	GetByID(ctx context.Context, id uint64) (*model.Screening, error)
	ListByRoomAndDates(ctx context.Context, roomID uint64, dates []string) ([]model.Screening, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.ScreeningStatus) error
	DecrementAvailable(ctx context.Context, id uint64, n int) (bool, error)
	IncrementAvailable(ctx context.Context, id uint64, n int) (bool, error)
	SearchListings(ctx context.Context, q repository.ScreeningSearchQuery) ([]repository.ScreeningListing, int64, error)
}

type RoomStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	UpdateStatus(ctx context.Context, id uint64, status model.RoomStatus, after string) error
}

type MovieStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
}

type SeatLedgerStore interface {
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.SeatLedgerEntry, error)
	InsertOccupiedIfAbsent(ctx context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error)
	Claim(ctx context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error)
	Hold(ctx context.Context, screeningID uint64, seatID string, expiry, now time.Time) (bool, error)
	Release(ctx context.Context, screeningID uint64, seatID string, now time.Time) error
	ReleaseIfOwned(ctx context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error)
	ReleaseHold(ctx context.Context, screeningID uint64, seatID string, expiry *time.Time, now time.Time) (bool, error)
}

type TicketStore interface {
	CreateBatch(ctx context.Context, tickets []model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	ListHoldingSeats(ctx context.Context, screeningID uint64) ([]model.Ticket, error)
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.Ticket, error)
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Ticket, error)
	GetStatuses(ctx context.Context, ids []string) (map[string]model.TicketStatus, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error)
	RevertCancel(ctx context.Context, id string, at time.Time) error
}

var (
	_ ScreeningStore  = (*repository.ScreeningRepo)(nil)
	_ RoomStore       = (*repository.RoomRepo)(nil)
	_ MovieStore      = (*repository.MovieRepo)(nil)
	_ SeatLedgerStore = (*repository.SeatLedgerRepo)(nil)
	_ TicketStore     = (*repository.TicketRepo)(nil)
)
