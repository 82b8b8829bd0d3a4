package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Application error codes.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse is the standardized API error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AppError represents a custom application error.
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
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewSubscriptionExpiredError() *AppError {
	return &AppError{
		Code:    CodeSubscriptionExpired,
		Message: "Your subscription has expired",
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Server error",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusForError maps an error to its HTTP status per the API taxonomy.
// Unknown errors are treated as internal.
func StatusForError(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation, CodeConflict:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden, CodeSubscriptionExpired:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes the standardized error envelope. Internal error
// detail never reaches the response body; callers log it.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	message := "Server error"
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		message = appErr.Message
	}
	return c.Status(status).JSON(ErrorResponse{Success: false, Message: message})
}

// RespondError writes the error envelope with the status derived from the
// error's code.
func RespondError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusForError(err), err)
}
