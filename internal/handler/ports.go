package handler

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// The handlers depend on these narrow views of the services so that they
// can be exercised with stubs.

type Catalog interface {
	Search(ctx context.Context, q repository.ScreeningSearchQuery) (*service.SearchResult, error)
	GetScreening(ctx context.Context, id uint64) (*model.Screening, error)
	CreateScreening(ctx context.Context, in service.CreateScreeningInput) (*model.Screening, error)
	UpdateStatus(ctx context.Context, id uint64, status string) (*model.Screening, error)
	UpdateRoomStatus(ctx context.Context, id uint64, status string) (*model.Room, error)
}

type SeatMaps interface {
	GetSeatMap(ctx context.Context, screeningID uint64) (model.SeatMap, error)
}

type Holds interface {
	Reserve(ctx context.Context, screeningID uint64, seatIDs []string) (*service.HoldResult, error)
	Release(ctx context.Context, screeningID uint64, seatIDs []string) ([]string, error)
	TTL() time.Duration
}

type Purchases interface {
	Purchase(ctx context.Context, req service.PurchaseRequest) ([]model.Ticket, error)
}

type Cancellations interface {
	Cancel(ctx context.Context, req service.CancelRequest) (*model.Ticket, error)
	Window() time.Duration
}

type TicketQueries interface {
	GetTicket(ctx context.Context, id string, userID *uint64) (*model.Ticket, error)
	ListMyTickets(ctx context.Context, userID uint64, page, pageSize int) ([]model.Ticket, error)
	ListScreeningTickets(ctx context.Context, screeningID uint64) ([]model.Ticket, error)
}

var (
	_ Catalog       = (*service.CatalogService)(nil)
	_ SeatMaps      = (*service.LedgerService)(nil)
	_ Holds         = (*service.HoldService)(nil)
	_ Purchases     = (*service.PurchaseService)(nil)
	_ Cancellations = (*service.CancellationService)(nil)
	_ TicketQueries = (*service.TicketQueryService)(nil)
)
