package validator

import (
	"errors"
	"fmt"
	"receptionist/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type SlotValidator struct {
	validate *validator.Validate
}

func NewSlotValidator() *SlotValidator {
	return &SlotValidator{
		validate: validator.New(),
	}
}

func (v *SlotValidator) ValidateCreate(req *model.SlotCreate) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *SlotValidator) ValidateStatus(status model.SlotStatus) error {
	if err := v.validate.Var(string(status), "required,oneof=open reserved booked cancelled"); err != nil {
		return ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown slot status %q", status)}}
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message(err),
		})
	}

	return validationErrors
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "gtfield":
		return fmt.Sprintf("must be after %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	default:
		return fmt.Sprintf("failed on %s", err.Tag())
	}
}
