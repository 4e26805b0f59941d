package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Kind classifies a service failure.  Handlers map kinds to HTTP statuses.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Conflict reasons reported to clients.
const (
	ReasonAlreadyCancelled = "already_cancelled"
	ReasonNotCancellable   = "not_cancellable"
	ReasonTooCloseToStart  = "too_close_to_start"
	ReasonSeatsUnavailable = "seats_unavailable"
	ReasonSoldOut          = "not_enough_seats"
	ReasonNotOnSale        = "screening_not_scheduled"
	ReasonScheduleOverlap  = "schedule_overlap"
	ReasonRoomUnavailable  = "room_unavailable"
	ReasonStatusTransition = "invalid_transition"
)

// Error is the error type every service operation returns.  Seats names the
// contested or unavailable seats, Reason a machine readable conflict cause
// and Overlaps the screenings blocking a new one.
type Error struct {
	Kind     Kind
	Message  string
	Reason   string
	Seats    []string
	Overlaps []model.Screening
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict   = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInternal   = &Error{Kind: KindInternal, Message: "internal error"}
)

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflict(reason, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError extracts the *Error in err's chain.  Anything else is reported as
// an internal error wrapping err.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal(err, "unexpected failure")
}
