package errors

import "errors"

var (
	ErrNotFound = errors.New("pool not found")

	ErrInvalidID = errors.New("invalid pool ID format")

	ErrMemberNotFound = errors.New("pool member not found")
)
