package model

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	TicketExpired   TicketStatus = "expired"
)

// ticketTransitions: active is the only non-terminal state.  used and
// expired are set by collaborators outside this service (entry scanning,
// post-screening cleanup); cancelled is set by the cancellation handler.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketActive:    {TicketUsed, TicketCancelled, TicketExpired},
	TicketUsed:      {},
	TicketCancelled: {},
	TicketExpired:   {},
}

// ParseTicketStatus converts a raw string into a TicketStatus.
func ParseTicketStatus(s string) (TicketStatus, error) {
	st := TicketStatus(s)
	if _, ok := ticketTransitions[st]; !ok {
		return "", fmt.Errorf("%w: ticket status %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s TicketStatus) IsTerminal() bool {
	next, ok := ticketTransitions[s]
	return ok && len(next) == 0
}

// HoldsSeat reports whether a ticket in this status keeps its seats
// occupied.  A used ticket still occupies its seat for the screening.
func (s TicketStatus) HoldsSeat() bool {
	return s == TicketActive || s == TicketUsed
}

// TicketType is the price category code chosen at purchase.
type TicketType string

const (
	TicketTypeRegular TicketType = "regular"
	TicketTypeVIP     TicketType = "vip"
	TicketTypeStudent TicketType = "student"
	TicketTypeSenior  TicketType = "senior"
)

// Granularity controls how a multi-seat purchase is split into tickets.
type Granularity string

const (
	// GranularityCombined issues one ticket covering every seat.
	GranularityCombined Granularity = "combined"
	// GranularityPerSeat issues one ticket per seat.
	GranularityPerSeat Granularity = "per_seat"
)

// ParseGranularity maps an optional request value to a Granularity; empty
// selects combined.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityCombined:
		return GranularityCombined, nil
	case GranularityPerSeat:
		return GranularityPerSeat, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// CustomerInfo is the contact snapshot stored on every ticket.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// Ticket is a paid entitlement to one or more seats of a screening.  Only
// Status and CancelledAt change after creation.
type Ticket struct {
	ID             string // UUIDv7
	ScreeningID    uint64
	Seats          []string
	TicketType     TicketType
	UnitPriceCents int64
	PricePaidCents int64
	Customer       CustomerInfo
	UserID         *uint64
	Code           string
	Status         TicketStatus
	CreatedAt      time.Time
	CancelledAt    *time.Time
}
