package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

const graduateColumns = `id, remote_id, national_id, first_name, last_name, career, email, secondary_email, payment_confirmed, last_synced_at, created_at`

type graduateRepository struct {
	db *sql.DB
}

func NewGraduateRepository(db *sql.DB) ports.GraduateRepository {
	return &graduateRepository{
		db: db,
	}
}

func (r *graduateRepository) Upsert(ctx context.Context, rec domain.RemoteRecord, syncedAt time.Time) (domain.UpsertOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertUnchanged, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanGraduate(tx.QueryRowContext(ctx,
		`SELECT `+graduateColumns+` FROM graduates WHERE remote_id = $1 FOR UPDATE`, rec.RemoteID))
	if err != nil && !errors.Is(err, domain.ErrGraduateNotFound) {
		return domain.UpsertUnchanged, err
	}

	var outcome domain.UpsertOutcome
	switch {
	case existing == nil:
		query := `
			INSERT INTO graduates (id, remote_id, national_id, first_name, last_name, career, email, secondary_email, payment_confirmed, last_synced_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $9)
		`
		_, err = tx.ExecContext(ctx, query, uuid.New(), rec.RemoteID, rec.NationalID, rec.FirstName, rec.LastName, rec.Career, rec.Email, rec.SecondaryEmail, syncedAt)
		if err != nil {
			return domain.UpsertUnchanged, fmt.Errorf("failed to insert graduate: %w", err)
		}
		outcome = domain.UpsertInserted

	case existing.PaymentConfirmed && existing.SameProfile(rec):
		_, err = tx.ExecContext(ctx, `UPDATE graduates SET last_synced_at = $2 WHERE id = $1`, existing.ID, syncedAt)
		if err != nil {
			return domain.UpsertUnchanged, fmt.Errorf("failed to touch graduate: %w", err)
		}
		outcome = domain.UpsertUnchanged

	default:
		query := `
			UPDATE graduates
			SET national_id = $2, first_name = $3, last_name = $4, career = $5, email = $6, secondary_email = $7,
			    payment_confirmed = TRUE, last_synced_at = $8
			WHERE id = $1
		`
		_, err = tx.ExecContext(ctx, query, existing.ID, rec.NationalID, rec.FirstName, rec.LastName, rec.Career, rec.Email, rec.SecondaryEmail, syncedAt)
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
	rows, err := r.db.QueryContext(ctx, `SELECT remote_id FROM graduates WHERE payment_confirmed ORDER BY remote_id`)
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE graduates SET payment_confirmed = FALSE WHERE payment_confirmed AND remote_id = ANY($1)`,
		pq.Array(remoteIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate graduates: %w", err)
	}
	return res.RowsAffected()
}

func (r *graduateRepository) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Graduate, error) {
	return scanGraduate(r.db.QueryRowContext(ctx,
		`SELECT `+graduateColumns+` FROM graduates WHERE remote_id = $1`, remoteID))
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
		`SELECT `+graduateColumns+` FROM graduates WHERE UPPER(national_id) = $1 ORDER BY remote_id`,
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
		lastSyncedAt sql.NullTime
	)
	err := row.Scan(
		&g.ID, &g.RemoteID, &g.NationalID, &g.FirstName, &g.LastName, &g.Career, &g.Email, &g.SecondaryEmail,
		&g.PaymentConfirmed, &lastSyncedAt, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGraduateNotFound
		}
		return nil, fmt.Errorf("failed to scan graduate: %w", err)
	}
	g.LastSyncedAt = nullTimePtr(lastSyncedAt)
	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}
