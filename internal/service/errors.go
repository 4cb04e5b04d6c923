package service

import (
	"fmt"
	"strings"

	"go-stock-resi/pkg/validator"

	"github.com/google/uuid"
)

// ValidationError means the input was malformed; nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: field '%s' %s", e.Field, e.Reason)
}

// NotFoundError means the operation referenced an unknown id.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InsufficientStockError means a movement would drive stock negative.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available, %d requested", e.Available, e.Requested)
}

// PersistenceError wraps a store or network failure. Partial is set when part
// of the operation had already been committed.
type PersistenceError struct {
	Op      string
	Err     error
	Partial bool
}

func (e *PersistenceError) Error() string {
	if e.Partial {
		return fmt.Sprintf("%s: partially applied: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func validationFailure(errs []*validator.ErrorResponse) error {
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	reason := "failed on '" + first.Tag + "'"
	switch first.Tag {
	case "required", "uuid_required":
		reason = "is required"
	case "min":
		reason = "must be at least " + first.Value
	case "gt":
		reason = "must be greater than " + first.Value
	case "oneof":
		reason = "must be one of " + strings.ReplaceAll(first.Value, " ", ", ")
	case "enum":
		reason = "has an unknown value"
	}
	return &ValidationError{Field: first.FailedField, Reason: reason}
}
