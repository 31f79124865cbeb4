package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

// RemoteSource is the read-only paid-student feed. Rows are already filtered
// to confirmed payments upstream. A zero since means "the configured start
// of the payment window".
type RemoteSource interface {
	FetchPaidStudents(ctx context.Context, since time.Time) ([]domain.RemoteRecord, error)
}

type WhitelistSource interface {
	Load(ctx context.Context) (domain.WhitelistSet, error)
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// InvitationSender delivers one graduate's companion passes. Rendering and
// transport live behind it.
type InvitationSender interface {
	Send(ctx context.Context, inv domain.Invitation) error
}
