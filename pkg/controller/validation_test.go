package controller

import (
	"errors"
	"net/http"
	"testing"
)

type validatingDTO struct {
	fail bool
}

func (d validatingDTO) Validate() error {
	if d.fail {
		return errors.New("text too short")
	}
	return nil
}

type plainDTO struct{}

func TestValidateDTO_NilDTO(t *testing.T) {
	err := ValidateDTO(nil)
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400 AppError, got %v", err)
	}
}

func TestValidateDTO_PassesValidDTO(t *testing.T) {
	if err := ValidateDTO(validatingDTO{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDTO_WrapsPlainValidationError(t *testing.T) {
	err := ValidateDTO(validatingDTO{fail: true})
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("status = %d", appErr.HTTPStatus)
	}
	if appErr.Message != "text too short" {
		t.Fatalf("message = %q", appErr.Message)
	}
}

func TestValidateDTO_NonValidatorPasses(t *testing.T) {
	if err := ValidateDTO(plainDTO{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFieldErrors_CarriesStructuredList(t *testing.T) {
	err := FieldErrors([]FieldError{
		{Field: "text", Message: "must be between 5 and 280 characters"},
		{Field: "user", Message: "is required"},
	})
	list, ok := err.Details["errors"].([]FieldError)
	if !ok {
		t.Fatalf("details[errors] has type %T", err.Details["errors"])
	}
	if len(list) != 2 || list[0].Field != "text" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
