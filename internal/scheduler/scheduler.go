// Package scheduler runs incremental syncs on a cron schedule, each followed
// by credential issuance for the graduates it brought in. Scheduled runs can
// be paused and resumed while the process is up.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

type Config struct {
	// Enabled is the state at startup; see SetEnabled.
	Enabled  bool
	Schedule string
	Lookback time.Duration
}

type Scheduler struct {
	cfg         Config
	sync        ports.SyncService
	credentials ports.CredentialService
	logger      *slog.Logger
	now         func() time.Time
	cron        *cron.Cron
	enabled     atomic.Bool

	mu        sync.Mutex
	lastRunAt *time.Time
	lastErr   error
}

func New(cfg Config, sync ports.SyncService, credentials ports.CredentialService, logger *slog.Logger, now func() time.Time) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	s := &Scheduler{
		cfg:         cfg,
		sync:        sync,
		credentials: credentials,
		logger:      logger.With("component", "scheduler"),
		now:         now,
	}
	s.enabled.Store(cfg.Enabled)

	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s, nil
}

// Run schedules the job and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.cfg.Schedule, err)
	}

	s.logger.Info("auto-sync scheduled", "schedule", s.cfg.Schedule, "lookback", s.cfg.Lookback, "enabled", s.Enabled())
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// tick is one cron firing. It does nothing while auto-sync is paused.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Debug("auto-sync paused, skipping run")
		return
	}
	err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}

	at := s.now()
	s.mu.Lock()
	s.lastRunAt = &at
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Scheduler) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled pauses or resumes scheduled runs. A run already in flight is
// not interrupted.
func (s *Scheduler) SetEnabled(enabled bool) domain.AutoSyncStatus {
	if s.enabled.Swap(enabled) != enabled {
		s.logger.Warn("auto-sync toggled", "enabled", enabled)
	}
	return s.Status()
}

func (s *Scheduler) Status() domain.AutoSyncStatus {
	st := domain.AutoSyncStatus{
		Enabled:  s.Enabled(),
		Schedule: s.cfg.Schedule,
		Lookback: s.cfg.Lookback.String(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRunAt != nil {
		at := *s.lastRunAt
		st.LastRunAt = &at
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// RunOnce performs one incremental sync and, if it completed, issues missing
// credentials. A sync already held by another run is not an error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	opts := domain.SyncOptions{Since: s.now().Add(-s.cfg.Lookback)}

	summary, err := s.sync.RunSync(ctx, opts)
	if errors.Is(err, domain.ErrSyncInProgress) {
		s.logger.Info("sync skipped, another run holds the lock")
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("scheduled sync completed",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"companions_created", summary.CompanionsCreated,
	)

	issued, err := s.credentials.IssueMissingCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to issue credentials: %w", err)
	}
	if issued > 0 {
		s.logger.Info("credentials issued", "count", issued)
	}
	return nil
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
