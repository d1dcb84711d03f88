package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
)

// IPThrottleConfig caps failed logins per client address within a sliding window
type IPThrottleConfig struct {
	MaxFailures int
	Window      time.Duration
}

// IPAuditService appends every login attempt to the per-address log and reads failures back
type IPAuditService struct {
	repo     IPLogRepository
	throttle IPThrottleConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewIPAuditService creates a new IPAuditService
func NewIPAuditService(repo IPLogRepository, throttle IPThrottleConfig, logger *slog.Logger) *IPAuditService {
	return &IPAuditService{
		repo:     repo,
		throttle: throttle,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordAttempt appends one entry. Persistence errors are returned, never swallowed.
func (s *IPAuditService) RecordAttempt(ctx context.Context, ip, username string, succeeded bool) error {
	record := &models.IPFailureRecord{
		IPAddress:   ip,
		Username:    username,
		AttemptedAt: s.now().UnixMilli(),
		Succeeded:   succeeded,
	}

	if err := s.repo.Record(ctx, record); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("ip_address", ip),
			slog.String("username", username),
			slog.Any("error", err))
		return models.NewServiceFailure("unable to record login attempt", err)
	}

	return nil
}

// FetchFailuresSince returns failed attempts from ip at or after since, oldest first.
// An empty ip yields an empty slice without touching the store.
func (s *IPAuditService) FetchFailuresSince(ctx context.Context, ip string, since time.Time) ([]models.IPFailureRecord, error) {
	if strings.TrimSpace(ip) == "" {
		return []models.IPFailureRecord{}, nil
	}

	records, err := s.repo.FetchFailuresSince(ctx, ip, since.UnixMilli())
	if err != nil {
		s.logger.Error("failed to fetch login failures",
			slog.String("ip_address", ip),
			slog.Any("error", err))
		return nil, models.NewServiceFailure("unable to fetch login failures", err)
	}

	return records, nil
}

// CheckThrottle returns ErrRateLimitExceeded once ip has MaxFailures or more failures in the window.
// Lookup errors fail open; they are logged and the attempt proceeds.
func (s *IPAuditService) CheckThrottle(ctx context.Context, ip string) error {
	if s.throttle.MaxFailures <= 0 {
		return nil
	}

	failures, err := s.FetchFailuresSince(ctx, ip, s.now().Add(-s.throttle.Window))
	if err != nil {
		return nil
	}

	if len(failures) >= s.throttle.MaxFailures {
		s.logger.Warn("IP rate limited",
			slog.String("ip_address", ip),
			slog.Int("failed_attempts", len(failures)))
		return models.ErrRateLimitExceeded
	}

	return nil
}
