package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
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

// Predefined error constructors
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Err:     err,
	}
}

// NewUpstreamError flattens a provider failure (storage, mail, speech) into
// a generic message; the underlying error is kept for logs only.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: message,
		Err:     err,
	}
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "CONFLICT":
		return fiber.StatusConflict
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case "FORBIDDEN":
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response. Domain errors keep
// their message and code; anything else is flattened to a generic failure.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		response := ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		return c.Status(appErr.StatusCode()).JSON(response)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "Internal server error",
	})
}

// IsConflict reports whether err is a Conflict AppError.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "CONFLICT"
}

// IsNotFound reports whether err is a NotFound AppError.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}
