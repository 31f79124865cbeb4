package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobSync     JobKind = "sync"
	JobIssue    JobKind = "issue"
	JobDispatch JobKind = "dispatch"
	// JobFullProcess runs sync, issuance and dispatch in that order and stops
	// at the first step that fails.
	JobFullProcess JobKind = "full-process"
)

func ParseJobKind(s string) (JobKind, error) {
	switch k := JobKind(s); k {
	case JobSync, JobIssue, JobDispatch, JobFullProcess:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJobKind, s)
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

func (s JobStatus) Finished() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobFinished    = errors.New("job already finished")
	ErrUnknownJobKind = errors.New("unknown job kind")
)

// Job is a snapshot of a background run started from the admin surface.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Kind       JobKind    `json:"kind"`
	Status     JobStatus  `json:"status"`
	Since      *time.Time `json:"since,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Sync     *SyncRunSummary  `json:"sync,omitempty"`
	Issued   *int             `json:"issued,omitempty"`
	Dispatch *DispatchSummary `json:"dispatch,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// AutoSyncStatus describes the scheduled incremental sync.
type AutoSyncStatus struct {
	Enabled   bool       `json:"enabled"`
	Schedule  string     `json:"schedule"`
	Lookback  string     `json:"lookback"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}
