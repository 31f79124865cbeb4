package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

type adminService struct {
	graduates  ports.GraduateRepository
	companions ports.CompanionRepository
	health     ports.StoreHealth
	logger     *slog.Logger
}

func NewAdminService(graduates ports.GraduateRepository, companions ports.CompanionRepository, health ports.StoreHealth, logger *slog.Logger) ports.AdminService {
	return &adminService{
		graduates:  graduates,
		companions: companions,
		health:     health,
		logger:     loggerOrDefault(logger),
	}
}

// ResetCheckIns is the only path back to pending. Tokens and issued_at are
// kept so delivered credentials stay valid. It is meant for rehearsals, not
// live scanning.
func (s *adminService) ResetCheckIns(ctx context.Context, remoteID string) (int64, error) {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID != "" {
		if _, err := s.graduates.GetByRemoteID(ctx, remoteID); err != nil {
			return 0, err
		}
	}

	n, err := s.companions.ResetCheckIns(ctx, remoteID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset check-ins: %w", err)
	}
	s.logger.Warn("check-ins reset", "remote_id", remoteID, "companions", n)
	return n, nil
}

func (s *adminService) ResetCheckInsByNationalID(ctx context.Context, nationalID string) (int64, error) {
	nationalID = domain.NormalizeIdentifier(nationalID)
	if nationalID == "" {
		return 0, domain.ErrGraduateNotFound
	}
	graduates, err := s.graduates.ListByNationalID(ctx, nationalID)
	if err != nil {
		return 0, err
	}
	if len(graduates) == 0 {
		return 0, domain.ErrGraduateNotFound
	}

	var total int64
	for _, g := range graduates {
		n, err := s.companions.ResetCheckIns(ctx, g.RemoteID)
		if err != nil {
			return total, fmt.Errorf("failed to reset check-ins of %s: %w", g.RemoteID, err)
		}
		total += n
	}
	s.logger.Warn("check-ins reset", "national_id", nationalID, "graduates", len(graduates), "companions", total)
	return total, nil
}

func (s *adminService) ExportState(ctx context.Context) ([]domain.ExportRow, error) {
	rows, err := s.companions.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export state: %w", err)
	}
	return rows, nil
}

func (s *adminService) ListGraduates(ctx context.Context) ([]*domain.Graduate, error) {
	graduates, err := s.graduates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list graduates: %w", err)
	}
	return graduates, nil
}

func (s *adminService) Ping(ctx context.Context) error {
	return s.health.Ping(ctx)
}
