// Package queue carries booking notifications over RabbitMQ: a publisher
// used by the booking services and a consumer that renders the customer
// facing confirmation and cancellation lines.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Message types, sent as the AMQP "type" property.
const (
	TypeTicketsPurchased = "tickets.purchased"
	TypeTicketCancelled  = "ticket.cancelled"
)

// TicketSummary is the part of a ticket a notification needs.  It is enough
// for downstream consumers to notify the customer without querying the
// primary database.
type TicketSummary struct {
	TicketID       string   `json:"ticket_id"`
	Code           string   `json:"ticket_code"`
	Seats          []string `json:"seats"`
	TicketType     string   `json:"ticket_type"`
	PricePaidCents int64    `json:"price_paid_cents"`
}

// TicketsPurchasedEvent is published once per successful purchase.
type TicketsPurchasedEvent struct {
	ScreeningID   uint64          `json:"screening_id"`
	MovieID       uint64          `json:"movie_id"`
	RoomID        uint64          `json:"room_id"`
	Date          string          `json:"date"`
	StartTime     string          `json:"start_time"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	UserID        *uint64         `json:"user_id,omitempty"`
	Tickets       []TicketSummary `json:"tickets"`
	TotalCents    int64           `json:"total_cents"`
	PurchasedAt   string          `json:"purchased_at"`
}

// TicketCancelledEvent is published once per cancelled ticket.
type TicketCancelledEvent struct {
	ScreeningID   uint64        `json:"screening_id"`
	Date          string        `json:"date"`
	StartTime     string        `json:"start_time"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	UserID        *uint64       `json:"user_id,omitempty"`
	Ticket        TicketSummary `json:"ticket"`
	CancelledAt   string        `json:"cancelled_at"`
}

func summarize(t *model.Ticket) TicketSummary {
	return TicketSummary{
		TicketID:       t.ID,
		Code:           t.Code,
		Seats:          t.Seats,
		TicketType:     string(t.TicketType),
		PricePaidCents: t.PricePaidCents,
	}
}

// NewTicketsPurchasedEvent builds the event for tickets bought together.
// tickets must not be empty.
func NewTicketsPurchasedEvent(sc *model.Screening, tickets []model.Ticket) TicketsPurchasedEvent {
	first := tickets[0]
	ev := TicketsPurchasedEvent{
		ScreeningID:   sc.ID,
		MovieID:       sc.MovieID,
		RoomID:        sc.RoomID,
		Date:          sc.Date,
		StartTime:     sc.StartTime,
		CustomerName:  first.Customer.Name,
		CustomerEmail: first.Customer.Email,
		UserID:        first.UserID,
		PurchasedAt:   first.CreatedAt.UTC().Format(time.RFC3339),
	}
	for i := range tickets {
		ev.Tickets = append(ev.Tickets, summarize(&tickets[i]))
		ev.TotalCents += tickets[i].PricePaidCents
	}
	return ev
}

// NewTicketCancelledEvent builds the event for a cancelled ticket.
func NewTicketCancelledEvent(sc *model.Screening, t *model.Ticket) TicketCancelledEvent {
	ev := TicketCancelledEvent{
		ScreeningID:   sc.ID,
		Date:          sc.Date,
		StartTime:     sc.StartTime,
		CustomerName:  t.Customer.Name,
		CustomerEmail: t.Customer.Email,
		UserID:        t.UserID,
		Ticket:        summarize(t),
	}
	if t.CancelledAt != nil {
		ev.CancelledAt = t.CancelledAt.UTC().Format(time.RFC3339)
	}
	return ev
}
