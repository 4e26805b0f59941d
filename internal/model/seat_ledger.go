package model

import (
	"fmt"
	"time"
)

// SeatStatus is the state of one seat for one screening.
type SeatStatus string

const (
	SeatFree        SeatStatus = "free"
	SeatReserved    SeatStatus = "reserved"
	SeatOccupied    SeatStatus = "occupied"
	SeatMaintenance SeatStatus = "maintenance"
)

// seatTransitions mirrors the conditional updates the ledger issues.
// reserved→reserved is a re-hold; occupied only leaves via release.
var seatTransitions = map[SeatStatus][]SeatStatus{
	SeatFree:        {SeatReserved, SeatOccupied, SeatMaintenance},
	SeatReserved:    {SeatReserved, SeatOccupied, SeatFree, SeatMaintenance},
	SeatOccupied:    {SeatFree},
	SeatMaintenance: {SeatFree},
}

// ParseSeatStatus converts a raw string into a SeatStatus.
func ParseSeatStatus(s string) (SeatStatus, error) {
	st := SeatStatus(s)
	if _, ok := seatTransitions[st]; !ok {
		return "", fmt.Errorf("%w: seat status %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s SeatStatus) CanTransitionTo(target SeatStatus) bool {
	for _, allowed := range seatTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Claimable reports whether a hold or a claim may take the seat.
func (s SeatStatus) Claimable() bool {
	return s == SeatFree || s == SeatReserved
}

// SeatLedgerEntry is the persisted state of a single (screening, seat) pair.
// At most one entry exists per pair; entries are created lazily.
type SeatLedgerEntry struct {
	ScreeningID       uint64
	SeatID            string
	Status            SeatStatus
	ReservationExpiry *time.Time // only meaningful while reserved
	TicketID          *string    // set while occupied
	Version           uint64
	UpdatedAt         time.Time
}

// EffectiveStatus returns the status a reader should observe at now.  A hold
// whose expiry has passed (or was never recorded) reads as free.
func (e *SeatLedgerEntry) EffectiveStatus(now time.Time) SeatStatus {
	if e.Status != SeatReserved {
		return e.Status
	}
	if e.ReservationExpiry == nil || !e.ReservationExpiry.After(now) {
		return SeatFree
	}
	return SeatReserved
}

// SeatMap is the per-seat view of a screening returned to callers.
type SeatMap map[string]SeatStatus
