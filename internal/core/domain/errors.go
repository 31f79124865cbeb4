package domain

import (
	"errors"
	"fmt"
)

var (
	ErrGraduateNotFound  = errors.New("graduate not found")
	ErrCompanionNotFound = errors.New("companion not found")
	ErrAlreadyDelivered  = errors.New("companion credential already delivered")
	ErrTokenCollision    = errors.New("credential token already assigned")
	ErrSyncInProgress    = errors.New("another sync run holds the lock")
	ErrSyncLeaseLost     = errors.New("sync lock lease expired and was taken over")
	ErrInvalidRecord     = errors.New("remote record does not conform")
	ErrEmptyFeed         = errors.New("remote feed returned no records")
)

// ConfigError reports a missing or malformed whitelist. It aborts a sync run
// before any store mutation.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("whitelist %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SourceUnavailableError reports that the remote feed (or the local store)
// could not be read as a whole. The run is aborted.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// RecordError is a single-record failure. It is logged and counted; the run
// continues.
type RecordError struct {
	RemoteID string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.RemoteID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// CredentialCollisionError is returned when token generation keeps hitting
// already-assigned tokens past the retry budget.
type CredentialCollisionError struct {
	Attempts int
}

func (e *CredentialCollisionError) Error() string {
	return fmt.Sprintf("credential token collided %d times", e.Attempts)
}

func (e *CredentialCollisionError) Unwrap() error { return ErrTokenCollision }
