package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

type GraduateRepository interface {
	// Upsert inserts or refreshes a graduate by remote id, forcing
	// payment_confirmed and stamping last_synced_at in both cases.
	Upsert(ctx context.Context, rec domain.RemoteRecord, syncedAt time.Time) (domain.UpsertOutcome, error)
	ListActiveRemoteIDs(ctx context.Context) ([]string, error)
	// Deactivate clears payment_confirmed; companions are not touched.
	Deactivate(ctx context.Context, remoteIDs []string) (int64, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Graduate, error)
	List(ctx context.Context) ([]*domain.Graduate, error)
	// ListByNationalID matches the identifier case-insensitively. Several
	// graduates may share one national id.
	ListByNationalID(ctx context.Context, nationalID string) ([]*domain.Graduate, error)
}

type StoreHealth interface {
	Ping(ctx context.Context) error
}

type SyncLock interface {
	// Acquire takes the named lease if it is free or expired.
	Acquire(ctx context.Context, name, holder string, lease time.Duration, now time.Time) (bool, error)
	// Renew extends a lease still held by holder; false means it was lost.
	Renew(ctx context.Context, name, holder string, lease time.Duration, now time.Time) (bool, error)
	Release(ctx context.Context, name, holder string) error
}
