package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidPayload      = errors.New("invalid event payload")
	ErrInvoiceNotAvailable = errors.New("invoice is not available for financing")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
)

// NotFoundError is returned by the unit of work when an entity lookup or
// update misses. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound creates a NotFoundError.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
