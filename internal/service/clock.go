package service

import "time"

// Clock supplies the current instant.  Services never call time.Now
// directly so that hold expiry and cancellation windows are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
