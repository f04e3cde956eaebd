package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrNotOpen is returned by conditional deletes when the slot exists but
	// has left the open state.
	ErrNotOpen = errors.New("slot is not open")
)
