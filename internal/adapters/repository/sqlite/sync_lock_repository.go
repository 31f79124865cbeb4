package sqlite

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

func NewSyncLockRepository(db *sql.DB) ports.SyncLock {
	return &syncLockRepository{db: db}
}

func (r *syncLockRepository) Acquire(ctx context.Context, name, holder string, lease time.Duration, now time.Time) (bool, error) {
	query := `
		INSERT INTO sync_locks (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET holder = excluded.holder, expires_at = excluded.expires_at
		WHERE sync_locks.expires_at < ?
	`
	res, err := r.db.ExecContext(ctx, query, name, holder, formatTime(now.Add(lease)), formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *syncLockRepository) Renew(ctx context.Context, name, holder string, lease time.Duration, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_locks SET expires_at = ? WHERE name = ? AND holder = ? AND expires_at >= ?`,
		formatTime(now.Add(lease)), name, holder, formatTime(now))
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
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_locks WHERE name = ? AND holder = ?`, name, holder)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
