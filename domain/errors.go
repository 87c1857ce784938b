package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotAvailable ErrorCode = "DATA_NOT_AVAILABLE"
	ErrCodePrecondition ErrorCode = "PRECONDITION_FAILED"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrDataNotAvailable = NewError(ErrCodeNotAvailable, "data not available")
	ErrTaskNotCached    = NewError(ErrCodePrecondition, "task not present in cache")
	ErrEmptyTask        = NewError(ErrCodeInvalid, "task must have a title or a description")
	ErrMissingTaskID    = NewError(ErrCodeInvalid, "missing task id")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "unauthorized")
)

// NotAvailable wraps a source failure so callers only ever see DATA_NOT_AVAILABLE on reads.
func NotAvailable(err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err, ErrCodeNotAvailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDataNotAvailable, err)
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
