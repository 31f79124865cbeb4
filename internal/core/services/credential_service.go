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

const (
	issueBatchSize   = 200
	maxTokenAttempts = 5
)

type credentialService struct {
	companions ports.CompanionRepository
	tokens     ports.TokenGenerator
	logger     *slog.Logger
	now        func() time.Time
}

func NewCredentialService(companions ports.CompanionRepository, tokens ports.TokenGenerator, logger *slog.Logger, now func() time.Time) ports.CredentialService {
	if tokens == nil {
		tokens = NewTokenGenerator()
	}
	return &credentialService{
		companions: companions,
		tokens:     tokens,
		logger:     loggerOrDefault(logger),
		now:        clockOrDefault(now),
	}
}

// IssueMissingCredentials assigns tokens to every companion still lacking
// one. Each call only sees the still-null subset, so it is safe to cancel and
// call again.
func (s *credentialService) IssueMissingCredentials(ctx context.Context) (int, error) {
	issued := 0
	for {
		batch, err := s.companions.ListUnissued(ctx, issueBatchSize)
		if err != nil {
			return issued, fmt.Errorf("failed to list unissued companions: %w", err)
		}

		for _, c := range batch {
			if err := ctx.Err(); err != nil {
				return issued, err
			}
			ok, err := s.issueOne(ctx, c.ID)
			if err != nil {
				return issued, fmt.Errorf("failed to issue credential for companion %s: %w", c.ID, err)
			}
			if ok {
				issued++
			}
		}

		if len(batch) < issueBatchSize {
			break
		}
	}

	if issued > 0 {
		s.logger.Info("credentials issued", "count", issued)
	}
	return issued, nil
}

func (s *credentialService) issueOne(ctx context.Context, id uuid.UUID) (bool, error) {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.tokens.NewToken()
		if err != nil {
			return false, fmt.Errorf("failed to generate token: %w", err)
		}

		assigned, err := s.companions.AssignToken(ctx, id, token, s.now())
		if errors.Is(err, domain.ErrTokenCollision) {
			s.logger.Warn("credential token collision, regenerating", "companion_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return false, err
		}
		return assigned, nil
	}
	return false, &domain.CredentialCollisionError{Attempts: maxTokenAttempts}
}
