package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

const graduateColumns = `id, remote_id, national_id, first_name, last_name, career, email, secondary_email, payment_confirmed, last_synced_at, created_at`

type graduateRepository struct {
	db *sql.DB
}

func NewGraduateRepository(db *sql.DB) ports.GraduateRepository {
	return &graduateRepository{db: db}
}

func (r *graduateRepository) Upsert(ctx context.Context, rec domain.RemoteRecord, syncedAt time.Time) (domain.UpsertOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertUnchanged, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanGraduate(tx.QueryRowContext(ctx,
		`SELECT `+graduateColumns+` FROM graduates WHERE remote_id = ?`, rec.RemoteID))
	if err != nil && !errors.Is(err, domain.ErrGraduateNotFound) {
		return domain.UpsertUnchanged, err
	}

	stamp := formatTime(syncedAt)
	var outcome domain.UpsertOutcome
	switch {
	case existing == nil:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO graduates (id, remote_id, national_id, first_name, last_name, career, email, secondary_email, payment_confirmed, last_synced_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, uuid.New(), rec.RemoteID, rec.NationalID, rec.FirstName, rec.LastName, rec.Career, rec.Email, rec.SecondaryEmail, stamp, stamp)
		if err != nil {
			return domain.UpsertUnchanged, fmt.Errorf("failed to insert graduate: %w", err)
		}
		outcome = domain.UpsertInserted

	case existing.PaymentConfirmed && existing.SameProfile(rec):
		_, err = tx.ExecContext(ctx, `UPDATE graduates SET last_synced_at = ? WHERE id = ?`, stamp, existing.ID)
		if err != nil {
			return domain.UpsertUnchanged, fmt.Errorf("failed to touch graduate: %w", err)
		}
		outcome = domain.UpsertUnchanged

	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE graduates
			SET national_id = ?, first_name = ?, last_name = ?, career = ?, email = ?, secondary_email = ?,
			    payment_confirmed = 1, last_synced_at = ?
			WHERE id = ?
		`, rec.NationalID, rec.FirstName, rec.LastName, rec.Career, rec.Email, rec.SecondaryEmail, stamp, existing.ID)
		if err != nil {
			return domain.UpsertUnchanged, fmt.Errorf("failed to update graduate: %w", err)
		}
		outcome = domain.UpsertUpdated
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertUnchanged, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

func (r *graduateRepository) ListActiveRemoteIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT remote_id FROM graduates WHERE payment_confirmed = 1 ORDER BY remote_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active graduates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan remote id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating graduates: %w", err)
	}
	return ids, nil
}

func (r *graduateRepository) Deactivate(ctx context.Context, remoteIDs []string) (int64, error) {
	if len(remoteIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE graduates SET payment_confirmed = 0 WHERE payment_confirmed = 1 AND remote_id = ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare deactivate statement: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, id := range remoteIDs {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate graduate %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return total, nil
}

func (r *graduateRepository) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Graduate, error) {
	return scanGraduate(r.db.QueryRowContext(ctx,
		`SELECT `+graduateColumns+` FROM graduates WHERE remote_id = ?`, remoteID))
}

func (r *graduateRepository) List(ctx context.Context) ([]*domain.Graduate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+graduateColumns+` FROM graduates ORDER BY last_name, first_name, remote_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list graduates: %w", err)
	}
	return collectGraduates(rows)
}

func (r *graduateRepository) ListByNationalID(ctx context.Context, nationalID string) ([]*domain.Graduate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+graduateColumns+` FROM graduates WHERE UPPER(national_id) = ? ORDER BY remote_id`,
		domain.NormalizeIdentifier(nationalID))
	if err != nil {
		return nil, fmt.Errorf("failed to find graduates by national id: %w", err)
	}
	return collectGraduates(rows)
}

func collectGraduates(rows *sql.Rows) ([]*domain.Graduate, error) {
	defer rows.Close()

	var graduates []*domain.Graduate
	for rows.Next() {
		g, err := scanGraduate(rows)
		if err != nil {
			return nil, err
		}
		graduates = append(graduates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating graduates: %w", err)
	}
	return graduates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGraduate(row rowScanner) (*domain.Graduate, error) {
	var (
		g            domain.Graduate
		lastSyncedAt sql.NullString
		createdAt    string
	)
	err := row.Scan(
		&g.ID, &g.RemoteID, &g.NationalID, &g.FirstName, &g.LastName, &g.Career, &g.Email, &g.SecondaryEmail,
		&g.PaymentConfirmed, &lastSyncedAt, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGraduateNotFound
		}
		return nil, fmt.Errorf("failed to scan graduate: %w", err)
	}
	if g.LastSyncedAt, err = parseNullTime(lastSyncedAt); err != nil {
		return nil, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &g, nil
}
