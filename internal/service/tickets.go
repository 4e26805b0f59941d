package service

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// TicketQueryService reads tickets for customers and operators.
type TicketQueryService struct {
	screenings ScreeningStore
	tickets    TicketStore
}

func NewTicketQueryService(screenings ScreeningStore, tickets TicketStore) *TicketQueryService {
	return &TicketQueryService{screenings: screenings, tickets: tickets}
}

// GetTicket returns a ticket.  When userID is non-nil a ticket belonging to
// someone else is reported as not found.
func (s *TicketQueryService) GetTicket(ctx context.Context, id string, userID *uint64) (*model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("ticket %s not found", id)
		}
		return nil, internal(err, "load ticket")
	}
	if userID != nil && (t.UserID == nil || *t.UserID != *userID) {
		return nil, notFound("ticket %s not found", id)
	}
	return t, nil
}

// ListMyTickets pages through a user's tickets, newest first.
func (s *TicketQueryService) ListMyTickets(ctx context.Context, userID uint64, page, pageSize int) ([]model.Ticket, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	out, err := s.tickets.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, internal(err, "list tickets")
	}
	if out == nil {
		out = []model.Ticket{}
	}
	return out, nil
}

// ListScreeningTickets returns every ticket of a screening.
func (s *TicketQueryService) ListScreeningTickets(ctx context.Context, screeningID uint64) ([]model.Ticket, error) {
	if _, err := s.screenings.GetByID(ctx, screeningID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("screening %d not found", screeningID)
		}
		return nil, internal(err, "load screening")
	}
	out, err := s.tickets.ListByScreening(ctx, screeningID)
	if err != nil {
		return nil, internal(err, "list tickets")
	}
	if out == nil {
		out = []model.Ticket{}
	}
	return out, nil
}
