package controller

import "errors"

// Validator is implemented by DTOs carrying their own validation logic.
type Validator interface {
	Validate() error
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors builds a validation AppError carrying a structured list of
// per-field violations.
func FieldErrors(errs []FieldError) *AppError {
	return NewValidationError("validation failed", map[string]interface{}{
		"errors": errs,
	})
}

// ValidateDTO validates a DTO implementing the Validator interface and
// normalizes the result into an AppError.
func ValidateDTO(dto interface{}) error {
	if dto == nil {
		return NewValidationError("request body is required", nil)
	}

	validator, ok := dto.(Validator)
	if !ok {
		return nil
	}

	err := validator.Validate()
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return NewValidationError(err.Error(), nil)
}
