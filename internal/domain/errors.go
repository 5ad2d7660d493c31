package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUniqueViolation = "23505"

	ErrInvalidTime           = errors.New("invalid time expression")
	ErrTaskEmpty             = errors.New("reminder task is empty")
	ErrStorage               = errors.New("reminder storage failure")
	ErrReminderAlreadyExists = errors.New("reminder with this id already exists")
	ErrReminderNotFound      = errors.New("reminder not found")
)

// ParseError is returned when a time expression cannot be turned into an
// absolute due time.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrInvalidTime }

// StorageError wraps a failed repository operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError returns nil for a nil err.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// DeliveryError records a send that the transport rejected.
type DeliveryError struct {
	ReminderID string
	ChatID     int64
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver reminder %s to chat %d: %v", e.ReminderID, e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
