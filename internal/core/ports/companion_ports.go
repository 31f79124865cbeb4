package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

type CompanionRepository interface {
	// CreateMissingSlots adds pending, token-less companions to every
	// payment confirmed graduate holding fewer than two.
	CreateMissingSlots(ctx context.Context, createdAt time.Time) (int64, error)
	ListByGraduate(ctx context.Context, graduateID uuid.UUID) ([]*domain.Companion, error)

	// ListUnissued returns token-less companions of payment confirmed graduates.
	ListUnissued(ctx context.Context, limit int) ([]*domain.Companion, error)
	// AssignToken sets the token only while it is still null. It reports
	// false when another issuer got there first and returns
	// domain.ErrTokenCollision when the token is taken by another row.
	AssignToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error)

	FindByToken(ctx context.Context, token string) (*domain.CompanionSnapshot, error)
	// TransitionStatus applies t as a compare-and-set on t.From. A move to
	// checked_in additionally requires the graduate to be payment confirmed
	// at the moment of the write; a move to denied requires the opposite.
	TransitionStatus(ctx context.Context, id uuid.UUID, t domain.CheckInTransition, at time.Time) (bool, error)
	// ResetCheckIns returns companions to pending. An empty remoteID resets
	// every companion.
	ResetCheckIns(ctx context.Context, remoteID string) (int64, error)

	PendingDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error

	Export(ctx context.Context) ([]domain.ExportRow, error)
}
