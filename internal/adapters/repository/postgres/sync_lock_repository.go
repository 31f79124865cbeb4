package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

type syncLockRepository struct {
	db *sql.DB
}

// NewSyncLockRepository returns a lease lock backed by the sync_locks table.
// An expired lease can be taken over, so a crashed run never blocks syncs
// for longer than its lease.
func NewSyncLockRepository(db *sql.DB) ports.SyncLock {
	return &syncLockRepository{db: db}
}

func (r *syncLockRepository) Acquire(ctx context.Context, name, holder string, lease time.Duration, now time.Time) (bool, error) {
	query := `
		INSERT INTO sync_locks (name, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE sync_locks.expires_at < $4
	`
	res, err := r.db.ExecContext(ctx, query, name, holder, now.Add(lease), now)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Renew extends a lease still held by holder. It reports false once the
// lease has expired or another holder took it over.
func (r *syncLockRepository) Renew(ctx context.Context, name, holder string, lease time.Duration, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_locks SET expires_at = $1 WHERE name = $2 AND holder = $3 AND expires_at >= $4`,
		now.Add(lease), name, holder, now)
	if err != nil {
		return false, fmt.Errorf("failed to renew lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *syncLockRepository) Release(ctx context.Context, name, holder string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_locks WHERE name = $1 AND holder = $2`, name, holder)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
