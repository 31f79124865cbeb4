package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

// SyncLockName is the fixed resource name of the single-flight sync lease.
const SyncLockName = "graduate-sync"

const defaultLockLease = 5 * time.Minute

// leaseRenewEvery is how many upserts run between lease renewals.
const leaseRenewEvery = 100

type SyncConfig struct {
	MatchField     domain.MatchField
	LockLease      time.Duration
	AllowEmptyFeed bool
}

type SyncDeps struct {
	Source     ports.RemoteSource
	Whitelist  ports.WhitelistSource
	Graduates  ports.GraduateRepository
	Companions ports.CompanionRepository
	Lock       ports.SyncLock
	Health     ports.StoreHealth
	Logger     *slog.Logger
	Now        func() time.Time
}

type syncService struct {
	SyncDeps
	cfg SyncConfig
}

func NewSyncService(deps SyncDeps, cfg SyncConfig) ports.SyncService {
	if cfg.MatchField == "" {
		cfg.MatchField = domain.MatchNationalID
	}
	if cfg.LockLease <= 0 {
		cfg.LockLease = defaultLockLease
	}
	deps.Logger = loggerOrDefault(deps.Logger)
	deps.Now = clockOrDefault(deps.Now)

	return &syncService{SyncDeps: deps, cfg: cfg}
}

func (s *syncService) RunSync(ctx context.Context, opts domain.SyncOptions) (*domain.SyncRunSummary, error) {
	summary := domain.NewSyncRunSummary(opts, s.Now())
	defer func() { summary.FinishedAt = s.Now() }()

	holder := uuid.NewString()
	acquired, err := s.Lock.Acquire(ctx, SyncLockName, holder, s.cfg.LockLease, summary.StartedAt)
	if err != nil {
		return summary, &domain.SourceUnavailableError{Source: "local store", Err: err}
	}
	if !acquired {
		return summary, domain.ErrSyncInProgress
	}
	defer func() {
		if err := s.Lock.Release(context.WithoutCancel(ctx), SyncLockName, holder); err != nil {
			s.Logger.Warn("failed to release sync lock", "holder", holder, "error", err)
		}
	}()

	whitelist, err := s.Whitelist.Load(ctx)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			return summary, err
		}
		return summary, &domain.ConfigError{Source: "whitelist", Err: err}
	}
	if len(whitelist) == 0 {
		return summary, &domain.ConfigError{Source: "whitelist", Err: errors.New("no eligible identifiers")}
	}

	records, err := s.Source.FetchPaidStudents(ctx, opts.Since)
	if err != nil {
		var srcErr *domain.SourceUnavailableError
		if errors.As(err, &srcErr) {
			return summary, err
		}
		return summary, &domain.SourceUnavailableError{Source: "remote", Err: err}
	}
	summary.Fetched = len(records)
	if len(records) == 0 && opts.Full() && !s.cfg.AllowEmptyFeed {
		return summary, &domain.SourceUnavailableError{Source: "remote", Err: domain.ErrEmptyFeed}
	}

	s.Logger.Info("sync started",
		"full", opts.Full(),
		"since", opts.Since,
		"fetched", len(records),
		"whitelisted", len(whitelist),
	)

	eligible := s.filterEligible(records, whitelist, summary)

	if err := s.renewLease(ctx, holder); err != nil {
		return summary, err
	}

	for i, rec := range eligible {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && i%leaseRenewEvery == 0 {
			if err := s.renewLease(ctx, holder); err != nil {
				return summary, err
			}
		}

		outcome, err := s.Graduates.Upsert(ctx, rec, s.Now())
		if err != nil {
			if pingErr := s.Health.Ping(ctx); pingErr != nil {
				return summary, &domain.SourceUnavailableError{Source: "local store", Err: errors.Join(err, pingErr)}
			}
			recErr := &domain.RecordError{RemoteID: rec.RemoteID, Err: err}
			s.Logger.Warn("failed to upsert graduate", "remote_id", rec.RemoteID, "error", err)
			summary.Errors = append(summary.Errors, recErr.Error())
			continue
		}

		switch outcome {
		case domain.UpsertInserted:
			summary.Inserted++
		case domain.UpsertUpdated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}

	if err := s.renewLease(ctx, holder); err != nil {
		return summary, err
	}

	if opts.Full() {
		deactivated, err := s.deactivateMissing(ctx, eligible)
		if err != nil {
			return summary, &domain.SourceUnavailableError{Source: "local store", Err: err}
		}
		summary.Deactivated = deactivated
	}

	created, err := s.Companions.CreateMissingSlots(ctx, s.Now())
	if err != nil {
		return summary, &domain.SourceUnavailableError{Source: "local store", Err: fmt.Errorf("failed to create companion slots: %w", err)}
	}
	summary.CompanionsCreated = int(created)
	summary.Completed = true

	s.Logger.Info("sync completed",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"skipped", summary.SkippedTotal(),
		"deactivated", summary.Deactivated,
		"companions_created", summary.CompanionsCreated,
		"record_errors", len(summary.Errors),
	)

	return summary, nil
}

// renewLease extends the sync lease. A run that lost its lease stops before
// writing anything else, since another run may now own the graduates table.
func (s *syncService) renewLease(ctx context.Context, holder string) error {
	ok, err := s.Lock.Renew(ctx, SyncLockName, holder, s.cfg.LockLease, s.Now())
	if err != nil {
		return &domain.SourceUnavailableError{Source: "local store", Err: err}
	}
	if !ok {
		s.Logger.Error("sync lease lost", "holder", holder)
		return domain.ErrSyncLeaseLost
	}
	return nil
}

// filterEligible classifies every record and returns those that may be
// written, in feed order. The first occurrence of a remote id wins.
func (s *syncService) filterEligible(records []domain.RemoteRecord, whitelist domain.WhitelistSet, summary *domain.SyncRunSummary) []domain.RemoteRecord {
	seen := make(map[string]struct{}, len(records))
	eligible := make([]domain.RemoteRecord, 0, len(records))

	for _, rec := range records {
		rec.Normalize()

		if err := rec.Validate(); err != nil {
			s.Logger.Debug("skipping non-conforming record", "remote_id", rec.RemoteID)
			summary.Skip(domain.SkipInvalidRecord)
			continue
		}
		if _, dup := seen[rec.RemoteID]; dup {
			summary.Skip(domain.SkipDuplicate)
			continue
		}
		seen[rec.RemoteID] = struct{}{}

		if !whitelist.Contains(rec.Identifier(s.cfg.MatchField)) {
			summary.Skip(domain.SkipNotWhitelisted)
			continue
		}
		if !rec.HasUsableEmail() {
			s.Logger.Warn("skipping graduate without usable email", "remote_id", rec.RemoteID)
			summary.Skip(domain.SkipNoEmail)
			continue
		}

		eligible = append(eligible, rec)
	}

	return eligible
}

func (s *syncService) deactivateMissing(ctx context.Context, eligible []domain.RemoteRecord) (int, error) {
	active, err := s.Graduates.ListActiveRemoteIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active graduates: %w", err)
	}

	keep := make(map[string]struct{}, len(eligible))
	for _, rec := range eligible {
		keep[rec.RemoteID] = struct{}{}
	}

	var missing []string
	for _, remoteID := range active {
		if _, ok := keep[remoteID]; !ok {
			missing = append(missing, remoteID)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	n, err := s.Graduates.Deactivate(ctx, missing)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate graduates: %w", err)
	}
	s.Logger.Info("graduates deactivated", "count", n)
	return int(n), nil
}
