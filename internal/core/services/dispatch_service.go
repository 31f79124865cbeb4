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

type dispatchService struct {
	companions ports.CompanionRepository
	sender     ports.InvitationSender
	logger     *slog.Logger
	now        func() time.Time
}

func NewDispatchService(companions ports.CompanionRepository, sender ports.InvitationSender, logger *slog.Logger, now func() time.Time) ports.DispatchService {
	return &dispatchService{
		companions: companions,
		sender:     sender,
		logger:     loggerOrDefault(logger),
		now:        clockOrDefault(now),
	}
}

func (s *dispatchService) PendingDeliveries(ctx context.Context) ([]domain.Delivery, error) {
	deliveries, err := s.companions.PendingDeliveries(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deliveries: %w", err)
	}
	return deliveries, nil
}

func (s *dispatchService) MarkDelivered(ctx context.Context, companionID uuid.UUID, at time.Time) error {
	return s.companions.MarkDelivered(ctx, companionID, at)
}

// DeliverPending sends one invitation per graduate with undelivered passes
// and records delivery per companion. A failed send leaves delivered_at null
// so the next pass retries it.
func (s *dispatchService) DeliverPending(ctx context.Context) (*domain.DispatchSummary, error) {
	if s.sender == nil {
		return nil, errors.New("no invitation sender configured")
	}

	deliveries, err := s.PendingDeliveries(ctx)
	if err != nil {
		return nil, err
	}

	summary := &domain.DispatchSummary{}
	for _, inv := range domain.GroupInvitations(deliveries) {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = s.now()
			return summary, err
		}
		summary.Invitations++

		if err := s.sender.Send(ctx, inv); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("graduate %s: %v", inv.RemoteID, err))
			s.logger.Warn("failed to send invitation", "remote_id", inv.RemoteID, "error", err)
			continue
		}

		at := s.now()
		for _, pass := range inv.Passes {
			err := s.companions.MarkDelivered(ctx, pass.CompanionID, at)
			switch {
			case errors.Is(err, domain.ErrAlreadyDelivered):
				s.logger.Warn("companion already marked delivered", "companion_id", pass.CompanionID)
			case err != nil:
				summary.FinishedAt = s.now()
				return summary, fmt.Errorf("failed to mark companion %s delivered: %w", pass.CompanionID, err)
			default:
				summary.Delivered++
			}
		}
	}

	summary.FinishedAt = s.now()
	s.logger.Info("dispatch completed",
		"invitations", summary.Invitations,
		"delivered", summary.Delivered,
		"failed", summary.Failed,
	)
	return summary, nil
}
