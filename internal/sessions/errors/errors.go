package errors

import "errors"

var (
	ErrNotFound = errors.New("live session not found")

	ErrInvalidID = errors.New("invalid live session ID format")

	// ErrNotBookable is returned when a slot stopped accepting bookings
	// between being read and being claimed.
	ErrNotBookable = errors.New("live session does not accept bookings")
)
