package store

import (
	"errors"
	"fmt"
)

// Sentinels shared by every progress backend. Callers test with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrCorruptSnapshot   = errors.New("corrupt progress snapshot")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrClosed            = errors.New("store is closed")
)

// IsNotFoundError reports whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError records which backend call failed and why.
type StoreError struct {
	Entity    string // "progress", "deck"
	Operation string // "load", "save"
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := e.Entity + " " + e.Operation + ": " + e.Message
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with the failing entity and operation.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
