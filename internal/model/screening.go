package model

import (
	"fmt"
	"time"
)

// ScreeningStatus is the lifecycle state of a screening.  Only the four
// declared values exist; anything else is rejected by ParseScreeningStatus.
type ScreeningStatus string

const (
	ScreeningScheduled ScreeningStatus = "scheduled"
	ScreeningOngoing   ScreeningStatus = "ongoing"
	ScreeningCompleted ScreeningStatus = "completed"
	ScreeningCancelled ScreeningStatus = "cancelled"
)

// screeningTransitions lists, for each status, the statuses it may move to.
// completed and cancelled are terminal.
var screeningTransitions = map[ScreeningStatus][]ScreeningStatus{
	ScreeningScheduled: {ScreeningOngoing, ScreeningCancelled},
	ScreeningOngoing:   {ScreeningCompleted, ScreeningCancelled},
	ScreeningCompleted: {},
	ScreeningCancelled: {},
}

// ParseScreeningStatus converts a raw string into a ScreeningStatus.
func ParseScreeningStatus(s string) (ScreeningStatus, error) {
	st := ScreeningStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: screening status %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Valid reports whether s is one of the declared statuses.
func (s ScreeningStatus) Valid() bool {
	_, ok := screeningTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s ScreeningStatus) IsTerminal() bool {
	return s.Valid() && len(screeningTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s ScreeningStatus) CanTransitionTo(target ScreeningStatus) bool {
	for _, allowed := range screeningTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Screening represents a scheduled showing of a movie in a room.  Date and
// the wall-clock StartTime/EndTime are interpreted in the cinema's time
// zone.  EndTime may exceed 24:00 for screenings that run past midnight and
// is nil on legacy rows that never recorded it.
//
// Fields:
//  ID                – primary key identifier.
//  MovieID           – movie being shown.
//  RoomID            – room hosting the screening.
//  Date              – calendar date, "2006-01-02".
//  StartTime         – wall clock start, "15:04".
//  EndTime           – wall clock end, "15:04" (nullable).
//  PriceRegularCents – regular seat price in cents.
//  PriceVIPCents     – VIP seat price in cents.
//  Language          – spoken language label.
//  Format            – projection format (2D, 3D, IMAX).
//  AvailableSeats    – unsold seat counter; only changed atomically.
//  Status            – lifecycle status.
type Screening struct {
	ID                uint64
	MovieID           uint64
	RoomID            uint64
	Date              string
	StartTime         string
	EndTime           *string
	PriceRegularCents int64
	PriceVIPCents     int64
	Language          string
	Format            string
	AvailableSeats    int
	Status            ScreeningStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StartsAt returns the absolute start instant of the screening in loc.
func (s *Screening) StartsAt(loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, s.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse screening date %q: %w", s.Date, err)
	}
	min, err := ParseClock(s.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), min/60, min%60, 0, 0, loc), nil
}

// Interval returns the screening's [start, end) in minutes from midnight of
// its own date.  ok is false when the end time is unknown.
func (s *Screening) Interval() (start, end int, ok bool, err error) {
	start, err = ParseClock(s.StartTime)
	if err != nil {
		return 0, 0, false, err
	}
	if s.EndTime == nil || *s.EndTime == "" {
		return start, 0, false, nil
	}
	end, err = ParseClock(*s.EndTime)
	if err != nil {
		return 0, 0, false, err
	}
	return start, end, true, nil
}
