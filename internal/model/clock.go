package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of screening dates.
const DateLayout = "2006-01-02"

// WallClockLayout renders a local instant the way MySQL compares DATETIME
// values built from a screening date and start time.
const WallClockLayout = "2006-01-02 15:04:05"

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

// maxClockHours bounds end times that spill into the following day.
const maxClockHours = 48

// ErrInvalidClock is returned for malformed wall clock values.
var ErrInvalidClock = errors.New("invalid wall clock time")

// ParseClock converts "HH:MM" (or the "HH:MM:SS" form MySQL returns for TIME
// columns) into minutes after midnight.  Hours up to 47 are accepted so that
// end times past midnight round-trip.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h >= maxClockHours {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseDate validates a "2006-01-02" date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ShiftDate returns the date days away from s, in the same layout.
func ShiftDate(s string, days int) (string, error) {
	d, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, days).Format(DateLayout), nil
}
