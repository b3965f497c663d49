package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("generation not found")
	ErrStoreDisabled  = errors.New("generation history is not configured")
	ErrAuditDisabled  = errors.New("push audit is not configured")
)

// PushFailedPrefix prefixes every persistence failure reported to clients.
const PushFailedPrefix = "GitHub push failed: "

// GenerationError is a failure reported by the generator. It is surfaced to
// the client with its own status code and message.
type GenerationError struct {
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (status %d): %s", e.StatusCode, e.Message)
}

// PersistenceError wraps any failure of the push step.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return PushFailedPrefix + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
