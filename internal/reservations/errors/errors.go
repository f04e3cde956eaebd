package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	// ErrActiveExists reports a violated (slot_id, status=active) uniqueness
	// constraint: another requester holds the slot.
	ErrActiveExists = errors.New("slot already has an active reservation")
)
