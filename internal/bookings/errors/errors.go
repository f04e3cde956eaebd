package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotAlreadyBooked reports a second confirmed booking for one slot.
	ErrSlotAlreadyBooked = errors.New("slot already has a confirmed booking")
)
