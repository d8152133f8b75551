package errors

import "errors"

var (
	ErrNotFound = errors.New("expert not found")

	ErrInvalidID = errors.New("invalid expert ID format")

	ErrDuplicate = errors.New("expert email or identity already registered")
)
