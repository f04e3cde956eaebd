package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeTimeout            = "TIMEOUT"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeRateLimited        = "RATE_LIMITED"

	CodePoolNotFound      = "POOL_NOT_FOUND"
	CodeSlotNotFound      = "SLOT_NOT_FOUND"
	CodeSlotTaken         = "SLOT_TAKEN"
	CodeSlotNotOpen       = "SLOT_NOT_OPEN"
	CodeNoMemberAvailable = "NO_MEMBER_AVAILABLE"
	CodeAssignmentFailed  = "ASSIGNMENT_FAILED"
	CodeBookingNotFound   = "BOOKING_NOT_FOUND"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func PreconditionFailed(message string) *AppError {
	return &AppError{
		Code:       CodePreconditionFailed,
		Message:    message,
		HTTPStatus: http.StatusPreconditionFailed,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Booking engine outcomes. These are expected results under contention or
// misconfiguration, not infrastructure faults.

func PoolNotFound(id string) *AppError {
	return &AppError{
		Code:       CodePoolNotFound,
		Message:    "Pool not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"pool_id": id},
	}
}

func SlotNotFound(id string) *AppError {
	return &AppError{
		Code:       CodeSlotNotFound,
		Message:    "Slot not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"slot_id": id},
	}
}

func SlotNotOpen(id string) *AppError {
	return &AppError{
		Code:       CodeSlotNotOpen,
		Message:    "Slot is not open for reservation",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": id},
	}
}

func SlotTaken(id string) *AppError {
	return &AppError{
		Code:       CodeSlotTaken,
		Message:    "Slot is already reserved by another requester",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": id},
	}
}

func NoMemberAvailable(poolID string) *AppError {
	return &AppError{
		Code:       CodeNoMemberAvailable,
		Message:    "Pool has no active members",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"pool_id": poolID},
	}
}

func AssignmentFailed(err error) *AppError {
	return &AppError{
		Code:       CodeAssignmentFailed,
		Message:    "Booking could not be completed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func BookingNotFound(id string) *AppError {
	return &AppError{
		Code:       CodeBookingNotFound,
		Message:    "Booking not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"booking_id": id},
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
