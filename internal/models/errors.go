package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. Handlers map these to HTTP statuses.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is a typed application error. Code identifies the error kind,
// Message is safe to show to clients, Err (if set) is the wrapped cause and
// never crosses the API boundary for internal errors.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError returns an AppError for a missing resource. Also used
// when the caller is not a participant, so existence is never leaked.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// NewForbiddenError returns an AppError for a disallowed action.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewConflictError returns an AppError for a state conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewValidationError returns an AppError for invalid input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewUnauthorizedError returns an AppError for a failed authentication.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewInternalError wraps an unexpected fault. The wrapped error is logged
// by the HTTP layer; clients only see the generic message.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError writes the standard failure envelope.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	message := "Internal server error"
	if appErr, ok := err.(*AppError); ok {
		message = appErr.Message
	} else if err != nil && status < fiber.StatusInternalServerError {
		message = err.Error()
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  false,
		"message": message,
	})
}
