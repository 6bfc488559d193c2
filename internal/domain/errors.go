package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrEditConflict     = errors.New("edit conflict")
	ErrTableUnavailable = errors.New("table is already reserved")
)

// ValidationError reports caller input or a cross-field consistency check that failed.
type ValidationError struct {
	Msg string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NotFoundError reports a missing reservation, payment record or pending change.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// PaymentIncompleteError is returned when the processor reports a status other than succeeded.
// Callers should prompt the user and retry.
type PaymentIncompleteError struct {
	PaymentIntentID string
	Status          string
}

func (e *PaymentIncompleteError) Error() string {
	return fmt.Sprintf("payment %s has not completed (status: %s)", e.PaymentIntentID, e.Status)
}

// UpstreamError wraps a failed call to the document store or the payment processor.
// Message and StatusCode are kept for logging and must not be shown to end users.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Service, e.Op, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
