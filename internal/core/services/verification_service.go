package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

const (
	maxTokenLength = 256
	maxCASAttempts = 3
	// transitionTimeout bounds a check-in write that outlives its request.
	transitionTimeout = 5 * time.Second
)

type verificationService struct {
	companions ports.CompanionRepository
	policy     domain.DeactivationPolicy
	logger     *slog.Logger
	now        func() time.Time
}

func NewVerificationService(companions ports.CompanionRepository, policy domain.DeactivationPolicy, logger *slog.Logger, now func() time.Time) ports.VerificationService {
	if policy == "" {
		policy = domain.PolicyDeny
	}
	return &verificationService{
		companions: companions,
		policy:     policy,
		logger:     loggerOrDefault(logger),
		now:        clockOrDefault(now),
	}
}

// Verify reads the companion behind token, decides the transition and, when
// the decision mutates state, applies it as a compare-and-set. Losing the CAS
// means another station changed the row in between, so the row is read and
// evaluated again.
func (s *verificationService) Verify(ctx context.Context, token string) domain.Verification {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLength {
		return domain.Verification{Result: domain.ResultNotFound}
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		snap, err := s.companions.FindByToken(ctx, token)
		if errors.Is(err, domain.ErrCompanionNotFound) {
			return domain.Verification{Result: domain.ResultNotFound}
		}
		if err != nil {
			s.logger.Error("verify: failed to read companion", "error", err)
			return domain.Verification{Result: domain.ResultUnavailable}
		}

		t, err := domain.EvaluateCheckIn(snap.Status, snap.GraduateActive, s.policy)
		if err != nil {
			s.logger.Error("verify: unusable companion state", "companion_id", snap.CompanionID, "error", err)
			return domain.Verification{Result: domain.ResultUnavailable}
		}
		if !t.Mutates() {
			return decision(t.Result, snap, snap.CheckedInAt)
		}

		// Truncated to the store's timestamp precision so later reads report
		// the identical instant.
		at := s.now().Truncate(time.Microsecond)
		applied, err := s.transition(ctx, snap, t, at)
		if err != nil {
			s.logger.Error("verify: failed to apply transition",
				"companion_id", snap.CompanionID,
				"from", t.From,
				"to", t.To,
				"error", err,
			)
			return domain.Verification{Result: domain.ResultUnavailable}
		}
		if applied {
			if t.To == domain.CompanionCheckedIn {
				s.logger.Info("companion checked in", "companion_id", snap.CompanionID, "slot", snap.Slot)
				return decision(t.Result, snap, &at)
			}
			s.logger.Info("companion denied", "companion_id", snap.CompanionID, "slot", snap.Slot)
			return decision(t.Result, snap, nil)
		}
	}

	s.logger.Warn("verify: compare-and-set kept losing", "attempts", maxCASAttempts)
	return domain.Verification{Result: domain.ResultUnavailable}
}

// transition applies t on a context detached from the caller. A decided
// check-in is written even when the station disconnects mid-request.
func (s *verificationService) transition(ctx context.Context, snap *domain.CompanionSnapshot, t domain.CheckInTransition, at time.Time) (bool, error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transitionTimeout)
	defer cancel()
	return s.companions.TransitionStatus(wctx, snap.CompanionID, t, at)
}

func decision(result domain.VerificationResult, snap *domain.CompanionSnapshot, checkedInAt *time.Time) domain.Verification {
	v := domain.Verification{Result: result, CompanionSlot: snap.Slot}
	switch result {
	case domain.ResultGranted, domain.ResultAlreadyUsed:
		student := snap.Student
		v.Student = &student
		v.CheckedInAt = checkedInAt
	}
	return v
}
