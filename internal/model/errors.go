package model

import "errors"

var (
	// ErrUnknownStatus is returned when a status string is outside its enum.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrInvalidSeatLabel is returned for seat ids that are not row+number.
	ErrInvalidSeatLabel = errors.New("invalid seat label")
)
