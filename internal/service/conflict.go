package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ConflictDetector guards screening creation against double booking a room.
type ConflictDetector struct {
	screenings ScreeningStore
}

func NewConflictDetector(screenings ScreeningStore) *ConflictDetector {
	return &ConflictDetector{screenings: screenings}
}

// Check returns the non-cancelled screenings of roomID that overlap
// [start, end) on date.  start and end are minutes after midnight of date;
// end may exceed a day.  Intervals are half-open so back-to-back screenings
// are allowed.  A screening without an end time blocks its whole day.
//
// Screenings on the neighbouring dates are loaded too, so that a late show
// running past midnight collides with an early show the next morning.
func (d *ConflictDetector) Check(ctx context.Context, roomID uint64, date string, start, end int) ([]model.Screening, error) {
	prev, err := model.ShiftDate(date, -1)
	if err != nil {
		return nil, err
	}
	next, err := model.ShiftDate(date, 1)
	if err != nil {
		return nil, err
	}
	existing, err := d.screenings.ListByRoomAndDates(ctx, roomID, []string{prev, date, next})
	if err != nil {
		return nil, fmt.Errorf("list room screenings: %w", err)
	}

	var overlaps []model.Screening
	for _, s := range existing {
		if s.Status == model.ScreeningCancelled {
			continue
		}
		var offset int
		switch s.Date {
		case prev:
			offset = -model.MinutesPerDay
		case next:
			offset = model.MinutesPerDay
		}
		sStart, sEnd, hasEnd, err := s.Interval()
		if err != nil {
			return nil, fmt.Errorf("screening %d: %w", s.ID, err)
		}
		if !hasEnd {
			sStart, sEnd = 0, model.MinutesPerDay
		}
		sStart += offset
		sEnd += offset
		if sStart < end && sEnd > start {
			overlaps = append(overlaps, s)
		}
	}
	return overlaps, nil
}
