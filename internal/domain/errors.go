package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers
var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConfirmedCartImmutable = errors.New("confirmed cart cannot be modified")
	ErrTransient              = errors.New("store temporarily unavailable")
	ErrValidation             = errors.New("validation failed")
)

// Store-level errors, resolved by services
var (
	ErrOpenCartExists  = errors.New("user already has an open cart")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// StockError reports the product whose stock could not cover a reservation
type StockError struct {
	ProductID string
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) match
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError carries a field-level message
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation builds a ValidationError
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflictError checks if the error is any 409 kind
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrConfirmedCartImmutable)
}

// IsTransientError checks if the error is a retryable store failure
func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransient)
}

// StockErrorProduct returns the failing product id of a stock error
func StockErrorProduct(err error) (string, bool) {
	var se *StockError
	if errors.As(err, &se) {
		return se.ProductID, true
	}
	return "", false
}
