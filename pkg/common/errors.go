package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across services
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeBadRequest     = "BAD_REQUEST"
	CodeInternalServer = "INTERNAL_SERVER_ERROR"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// AppError is the application-level error carried between layers
type AppError struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a domain invariant violation
func NewValidationError(message string, err error) *AppError {
	return &AppError{Code: CodeValidation, Status: http.StatusUnprocessableEntity, Message: message, Err: err}
}

// NewNotFoundError reports a missing entity
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

// NewBadRequestError reports malformed caller input
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: message, Err: err}
}

// NewInternalServerError reports an unexpected failure
func NewInternalServerError(message string) *AppError {
	return &AppError{Code: CodeInternalServer, Status: http.StatusInternalServerError, Message: message}
}

// NewUnavailableError reports a dependency that is temporarily down
func NewUnavailableError(message string, err error) *AppError {
	return &AppError{Code: CodeUnavailable, Status: http.StatusServiceUnavailable, Message: message, Err: err}
}

// IsValidation reports whether err is a validation AppError
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeValidation
}

// IsNotFound reports whether err is a not-found AppError
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}
