package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrDuplicate is returned when the student already holds a booking
	// for the live session.
	ErrDuplicate = errors.New("student already booked this live session")

	// ErrStatusChanged is returned by conditional status updates when the
	// stored status no longer matches the one the caller read.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)
