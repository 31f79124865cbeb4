package postgres

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

const companionColumns = `id, graduate_id, slot, credential_token, issued_at, delivered_at, status, checked_in_at, created_at`

type companionRepository struct {
	db *sql.DB
}

func NewCompanionRepository(db *sql.DB) ports.CompanionRepository {
	return &companionRepository{
		db: db,
	}
}

func (r *companionRepository) CreateMissingSlots(ctx context.Context, createdAt time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	missingQuery := `
		SELECT g.id, s.slot
		FROM graduates g
		CROSS JOIN (SELECT 1 AS slot UNION ALL SELECT 2) s
		WHERE g.payment_confirmed
		  AND NOT EXISTS (
			SELECT 1 FROM companions c WHERE c.graduate_id = g.id AND c.slot = s.slot
		  )
		ORDER BY g.id, s.slot
	`
	rows, err := tx.QueryContext(ctx, missingQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to find missing companion slots: %w", err)
	}

	type slotRef struct {
		graduateID uuid.UUID
		slot       int
	}
	var missing []slotRef
	for rows.Next() {
		var ref slotRef
		if err := rows.Scan(&ref.graduateID, &ref.slot); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan missing slot: %w", err)
		}
		missing = append(missing, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating missing slots: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO companions (id, graduate_id, slot, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
		ON CONFLICT (graduate_id, slot) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare companion statement: %w", err)
	}
	defer stmt.Close()

	var created int64
	for _, ref := range missing {
		res, err := stmt.ExecContext(ctx, uuid.New(), ref.graduateID, ref.slot, createdAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert companion: %w", err)
		}
		n, _ := res.RowsAffected()
		created += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

func (r *companionRepository) ListByGraduate(ctx context.Context, graduateID uuid.UUID) ([]*domain.Companion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+companionColumns+` FROM companions WHERE graduate_id = $1 ORDER BY slot`, graduateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companions: %w", err)
	}
	defer rows.Close()
	return scanCompanions(rows)
}

func (r *companionRepository) ListUnissued(ctx context.Context, limit int) ([]*domain.Companion, error) {
	query := `
		SELECT c.id, c.graduate_id, c.slot, c.credential_token, c.issued_at, c.delivered_at, c.status, c.checked_in_at, c.created_at
		FROM companions c
		JOIN graduates g ON g.id = c.graduate_id
		WHERE c.credential_token IS NULL AND g.payment_confirmed
		ORDER BY c.created_at, c.id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list unissued companions: %w", err)
	}
	defer rows.Close()
	return scanCompanions(rows)
}

func (r *companionRepository) AssignToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE companions SET credential_token = $2, issued_at = $3 WHERE id = $1 AND credential_token IS NULL`,
		id, token, issuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrTokenCollision
		}
		return false, fmt.Errorf("failed to assign token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *companionRepository) FindByToken(ctx context.Context, token string) (*domain.CompanionSnapshot, error) {
	query := `
		SELECT c.id, c.slot, c.status, c.checked_in_at, g.payment_confirmed, g.first_name, g.last_name, g.career
		FROM companions c
		JOIN graduates g ON g.id = c.graduate_id
		WHERE c.credential_token = $1
	`
	var (
		snap        domain.CompanionSnapshot
		status      string
		checkedInAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&snap.CompanionID, &snap.Slot, &status, &checkedInAt, &snap.GraduateActive,
		&snap.Student.FirstName, &snap.Student.LastName, &snap.Student.Career,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCompanionNotFound
		}
		return nil, fmt.Errorf("failed to find companion: %w", err)
	}
	if snap.Status, err = domain.ParseCompanionStatus(status); err != nil {
		return nil, err
	}
	snap.CheckedInAt = nullTimePtr(checkedInAt)
	return &snap, nil
}

func (r *companionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, t domain.CheckInTransition, at time.Time) (bool, error) {
	var (
		checkedInAt   sql.NullTime
		requireActive bool
	)
	switch t.To {
	case domain.CompanionCheckedIn:
		checkedInAt = sql.NullTime{Time: at, Valid: true}
		requireActive = true
	case domain.CompanionDenied:
		requireActive = false
	default:
		return false, fmt.Errorf("transition to %q is not a check-in transition", t.To)
	}

	query := `
		UPDATE companions c
		SET status = $3, checked_in_at = $4
		WHERE c.id = $1
		  AND c.status = $2
		  AND EXISTS (
			SELECT 1 FROM graduates g WHERE g.id = c.graduate_id AND g.payment_confirmed = $5
		  )
	`
	res, err := r.db.ExecContext(ctx, query, id, string(t.From), string(t.To), checkedInAt, requireActive)
	if err != nil {
		return false, fmt.Errorf("failed to transition companion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *companionRepository) ResetCheckIns(ctx context.Context, remoteID string) (int64, error) {
	query := `UPDATE companions SET status = 'pending', checked_in_at = NULL WHERE status <> 'pending'`
	args := []any{}
	if remoteID != "" {
		query += ` AND graduate_id = (SELECT id FROM graduates WHERE remote_id = $1)`
		args = append(args, remoteID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset check-ins: %w", err)
	}
	return res.RowsAffected()
}

func (r *companionRepository) PendingDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error) {
	query := `
		SELECT c.id, g.id, g.remote_id, c.slot, c.credential_token, g.first_name, g.last_name, g.career, g.email, g.secondary_email
		FROM companions c
		JOIN graduates g ON g.id = c.graduate_id
		WHERE c.credential_token IS NOT NULL
		  AND c.delivered_at IS NULL
		  AND g.payment_confirmed
		ORDER BY g.last_name, g.first_name, g.id, c.slot
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		if err := rows.Scan(&d.CompanionID, &d.GraduateID, &d.RemoteID, &d.Slot, &d.CredentialToken,
			&d.FirstName, &d.LastName, &d.Career, &d.Email, &d.SecondaryEmail); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}
	return deliveries, nil
}

func (r *companionRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE companions SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark companion delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM companions WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCompanionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check companion: %w", err)
	}
	return domain.ErrAlreadyDelivered
}

func (r *companionRepository) Export(ctx context.Context) ([]domain.ExportRow, error) {
	query := `
		SELECT g.id, g.remote_id, g.national_id, g.first_name, g.last_name, g.career, g.email,
		       g.payment_confirmed, g.last_synced_at,
		       c.id, c.slot, c.credential_token, c.issued_at, c.delivered_at, c.status, c.checked_in_at
		FROM graduates g
		LEFT JOIN companions c ON c.graduate_id = g.id
		ORDER BY g.last_name, g.first_name, g.remote_id, c.slot
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to export state: %w", err)
	}
	defer rows.Close()

	var out []domain.ExportRow
	for rows.Next() {
		var (
			row                                              domain.ExportRow
			lastSyncedAt, issuedAt, deliveredAt, checkedInAt sql.NullTime
			companionID                                      uuid.NullUUID
			slot                                             sql.NullInt64
			token, status                                    sql.NullString
		)
		if err := rows.Scan(
			&row.GraduateID, &row.RemoteID, &row.NationalID, &row.FirstName, &row.LastName, &row.Career, &row.Email,
			&row.PaymentConfirmed, &lastSyncedAt,
			&companionID, &slot, &token, &issuedAt, &deliveredAt, &status, &checkedInAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		row.LastSyncedAt = nullTimePtr(lastSyncedAt)
		if companionID.Valid {
			id := companionID.UUID
			row.CompanionID = &id
			row.Slot = int(slot.Int64)
			row.CredentialToken = token.String
			row.IssuedAt = nullTimePtr(issuedAt)
			row.DeliveredAt = nullTimePtr(deliveredAt)
			if row.Status, err = domain.ParseCompanionStatus(status.String); err != nil {
				return nil, err
			}
			row.CheckedInAt = nullTimePtr(checkedInAt)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}
	return out, nil
}

func scanCompanions(rows *sql.Rows) ([]*domain.Companion, error) {
	var companions []*domain.Companion
	for rows.Next() {
		var (
			c                                  domain.Companion
			token                              sql.NullString
			status                             string
			issuedAt, deliveredAt, checkedInAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.GraduateID, &c.Slot, &token, &issuedAt, &deliveredAt, &status, &checkedInAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan companion: %w", err)
		}
		c.CredentialToken = token.String
		c.IssuedAt = nullTimePtr(issuedAt)
		c.DeliveredAt = nullTimePtr(deliveredAt)
		var err error
		if c.Status, err = domain.ParseCompanionStatus(status); err != nil {
			return nil, err
		}
		c.CheckedInAt = nullTimePtr(checkedInAt)
		c.CreatedAt = c.CreatedAt.UTC()
		companions = append(companions, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companions: %w", err)
	}
	return companions, nil
}

// limitArg maps a non-positive limit to SQL NULL, which Postgres reads as
// LIMIT ALL.
func limitArg(limit int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
}
