// Package mysql reads paid students from the institution's MySQL ledger.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

const connectAttempts = 3

// paidStudentsQuery lists confirmed graduation fee payments, newest first
// within each student.
const paidStudentsQuery = `
	SELECT e.IDEstudiante, e.Cedula, e.Nombres, e.Apellidos, e.EMail, csd.CodPrograma
	FROM Estudiantes e
	JOIN CuentaMovimiento cm ON cm.IDCuentaVirtual = e.IDEstudiante
	LEFT JOIN CuentaSolicitudDetalle csd
	       ON csd.IDCuentaVirtual = e.IDEstudiante AND csd.CodCuentaOperacion = cm.CodCuentaOperacion
	WHERE cm.CodCuentaOperacion LIKE 'ACT%'
	  AND cm.Confirmado = 1
	  AND cm.DT >= ?
	ORDER BY e.IDEstudiante, cm.DT DESC
`

// profileEmailsQuery is completed with one placeholder per student id.
const profileEmailsQuery = `
	SELECT IDUsuario, Correo
	FROM Perfil
	WHERE Correo IS NOT NULL AND Correo <> '' AND IDUsuario IN (%s)
`

const profileBatchSize = 500

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Timeout  time.Duration
	// FromDate bounds full runs; incremental runs pass their own lower bound.
	FromDate time.Time
	// Location is the zone the ledger stores its naive DT column in.
	Location *time.Location
}

func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, c.Port)
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.DBName
	cfg.Timeout = c.Timeout
	cfg.ReadTimeout = c.Timeout
	cfg.ParseTime = true
	cfg.Loc = c.location()
	return cfg.FormatDSN()
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

type Source struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

var _ ports.RemoteSource = (*Source)(nil)

// New prepares the connection pool. No connection is made until the first
// fetch.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open remote mysql: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)

	return &Source{db: db, cfg: cfg, logger: logger}, nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) FetchPaidStudents(ctx context.Context, since time.Time) ([]domain.RemoteRecord, error) {
	if err := s.connect(ctx); err != nil {
		return nil, &domain.SourceUnavailableError{Source: "mysql", Err: err}
	}

	from := since
	if from.IsZero() {
		from = s.cfg.FromDate
	}
	// DT is naive local time in the ledger.
	from = from.In(s.cfg.location())

	rows, err := s.db.QueryContext(ctx, paidStudentsQuery, from)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: "mysql", Err: fmt.Errorf("failed to query paid students: %w", err)}
	}
	defer rows.Close()

	var fetched []domain.RemoteRecord
	for rows.Next() {
		var remoteID, nationalID, firstName, lastName, email, career sql.NullString
		if err := rows.Scan(&remoteID, &nationalID, &firstName, &lastName, &email, &career); err != nil {
			return nil, &domain.SourceUnavailableError{Source: "mysql", Err: fmt.Errorf("failed to scan paid student: %w", err)}
		}
		fetched = append(fetched, domain.RemoteRecord{
			RemoteID:   remoteID.String,
			NationalID: nationalID.String,
			FirstName:  firstName.String,
			LastName:   lastName.String,
			Career:     career.String,
			Email:      email.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.SourceUnavailableError{Source: "mysql", Err: fmt.Errorf("error iterating paid students: %w", err)}
	}

	records := latestPerStudent(fetched)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.RemoteID != "" {
			ids = append(ids, r.RemoteID)
		}
	}
	secondary := s.profileEmails(ctx, ids)
	for i := range records {
		records[i].SecondaryEmail = domain.SecondaryRecipient(records[i].Email, secondary[records[i].RemoteID])
	}

	s.logger.Debug("fetched paid students", "rows", len(fetched), "students", len(records), "from", from)
	return records, nil
}

// profileEmails maps student ids to their profile address, in batches. A
// failed batch is logged and contributes nothing.
func (s *Source) profileEmails(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += profileBatchSize {
		end := min(start+profileBatchSize, len(ids))
		if err := s.queryProfileEmails(ctx, ids[start:end], out); err != nil {
			s.logger.Warn("failed to fetch profile emails", "students", end-start, "error", err)
		}
	}
	return out
}

func (s *Source) queryProfileEmails(ctx context.Context, ids []string, out map[string]string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(profileEmailsQuery, placeholders), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return err
		}
		if _, ok := out[id]; !ok {
			out[id] = email
		}
	}
	return rows.Err()
}

func (s *Source) connect(ctx context.Context) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts-1),
		ctx,
	)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.db.PingContext(ctx)
		if err != nil {
			s.logger.Warn("remote mysql ping failed", "attempt", attempt, "error", err)
		}
		return err
	}, policy)
}

// latestPerStudent keeps the first row of each student. Rows arrive ordered
// by payment date descending, so that is the most recent payment.
func latestPerStudent(rows []domain.RemoteRecord) []domain.RemoteRecord {
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.RemoteRecord, 0, len(rows))
	for _, r := range rows {
		if r.RemoteID == "" {
			out = append(out, r)
			continue
		}
		if _, ok := seen[r.RemoteID]; ok {
			continue
		}
		seen[r.RemoteID] = struct{}{}
		out = append(out, r)
	}
	return out
}
