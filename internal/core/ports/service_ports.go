package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

type SyncService interface {
	RunSync(ctx context.Context, opts domain.SyncOptions) (*domain.SyncRunSummary, error)
}

type CredentialService interface {
	IssueMissingCredentials(ctx context.Context) (int, error)
}

// VerificationService never fails with an error: every outcome, including
// store outages, is a typed result.
type VerificationService interface {
	Verify(ctx context.Context, token string) domain.Verification
}

type DispatchService interface {
	PendingDeliveries(ctx context.Context) ([]domain.Delivery, error)
	MarkDelivered(ctx context.Context, companionID uuid.UUID, at time.Time) error
	DeliverPending(ctx context.Context) (*domain.DispatchSummary, error)
}

type AdminService interface {
	ResetCheckIns(ctx context.Context, remoteID string) (int64, error)
	// ResetCheckInsByNationalID resets every graduate carrying the id.
	ResetCheckInsByNationalID(ctx context.Context, nationalID string) (int64, error)
	ExportState(ctx context.Context) ([]domain.ExportRow, error)
	ListGraduates(ctx context.Context) ([]*domain.Graduate, error)
	Ping(ctx context.Context) error
}

// JobRunner runs admin operations in the background, detached from the
// request that started them.
type JobRunner interface {
	Start(ctx context.Context, kind domain.JobKind, opts domain.SyncOptions) (domain.Job, error)
	Get(id uuid.UUID) (domain.Job, error)
	List() []domain.Job
	Cancel(id uuid.UUID) (domain.Job, error)
}

type AutoSyncController interface {
	Status() domain.AutoSyncStatus
	SetEnabled(enabled bool) domain.AutoSyncStatus
}
