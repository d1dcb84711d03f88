package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
)

// SMSCodeIssuer starts the SMS stage once the email stage is verified
type SMSCodeIssuer interface {
	IssueSmsCode(ctx context.Context, username string) error
}

// VerificationConfig bounds how long a code stays valid and how many wrong guesses a live record takes
type VerificationConfig struct {
	CodeWindow        time.Duration
	MaxFailedAttempts int
}

// VerificationService runs the two-factor registration challenge: EMAIL first, then SMS.
//
// Per (username, factor) the newest record is live. A live record with MaxFailedAttempts
// or more failures is locked and is never compared against a submitted code again.
// Issuing a new code creates a new live record, which resets the ceiling.
type VerificationService struct {
	attempts VerificationRepository
	accounts AccountRepository
	sms      SMSProvider
	issuer   SMSCodeIssuer
	config   VerificationConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(attempts VerificationRepository, accounts AccountRepository, sms SMSProvider,
	issuer SMSCodeIssuer, config VerificationConfig, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		attempts: attempts,
		accounts: accounts,
		sms:      sms,
		issuer:   issuer,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckEmailCode verifies an EMAIL code. On success it issues the SMS code exactly once.
func (s *VerificationService) CheckEmailCode(ctx context.Context, username, code string) (bool, error) {
	live, err := s.liveRecord(ctx, username, models.FactorEmail)
	if err != nil {
		return false, err
	}

	if live != nil && s.locked(live) {
		s.logger.Warn("email code check refused, too many failed attempts",
			slog.String("username", username),
			slog.Int("failed_attempts", live.FailedAttempts))
		return false, nil
	}

	since := s.now().Add(-s.config.CodeWindow).UnixMilli()
	matches, err := s.attempts.FindCodeMatches(ctx, username, models.FactorEmail, code, since)
	if err != nil {
		s.logger.Error("failed to query email codes", slog.String("username", username), slog.Any("error", err))
		return false, models.NewServiceFailure("unable to check email code", err)
	}

	if len(matches) == 0 {
		if err := s.recordFailure(ctx, live); err != nil {
			return false, err
		}
		return false, nil
	}

	// A match already followed by an SMS issuance has been used
	if used, err := s.smsStageStarted(ctx, username, matches[0].IssuedAt); err != nil {
		return false, err
	} else if used {
		s.logger.Info("email code already used", slog.String("username", username))
		return false, nil
	}

	if err := s.issuer.IssueSmsCode(ctx, username); err != nil {
		return false, err
	}

	s.logger.Info("email code verified", slog.String("username", username))
	return true, nil
}

// CheckSmsCode verifies an SMS code with the provider. On success the account is granted the
// base user authority.
func (s *VerificationService) CheckSmsCode(ctx context.Context, username, code string) (bool, error) {
	live, err := s.liveRecord(ctx, username, models.FactorSMS)
	if err != nil {
		return false, err
	}
	if live == nil {
		return false, nil
	}

	if s.locked(live) {
		s.logger.Warn("sms code check refused, too many failed attempts",
			slog.String("username", username),
			slog.Int("failed_attempts", live.FailedAttempts))
		return false, nil
	}

	ok, err := s.sms.CheckVerification(ctx, live.ProviderRequestID, code)
	if err != nil {
		s.logger.Error("sms provider check failed", slog.String("username", username), slog.Any("error", err))
		return false, models.NewServiceFailure("unable to check sms code", err)
	}

	if !ok {
		if err := s.recordFailure(ctx, live); err != nil {
			return false, err
		}
		return false, nil
	}

	if _, err := s.accounts.AddAuthority(ctx, username, models.AuthorityBasicUser); err != nil {
		s.logger.Error("failed to grant authority", slog.String("username", username), slog.Any("error", err))
		return false, models.NewServiceFailure("unable to activate account", err)
	}

	s.logger.Info("sms code verified, account activated", slog.String("username", username))
	return true, nil
}

// liveRecord returns the newest record, or nil when none was ever issued
func (s *VerificationService) liveRecord(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
	live, err := s.attempts.FindLatest(ctx, username, factor)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to load live verification record",
			slog.String("username", username),
			slog.String("factor", string(factor)),
			slog.Any("error", err))
		return nil, models.NewServiceFailure("unable to load verification record", err)
	}
	return live, nil
}

func (s *VerificationService) locked(live *models.VerificationAttempt) bool {
	return live.FailedAttempts >= s.config.MaxFailedAttempts
}

// recordFailure increments the live record's counter. Read-modify-write, last write wins.
func (s *VerificationService) recordFailure(ctx context.Context, live *models.VerificationAttempt) error {
	if live == nil {
		return nil
	}

	failed := live.FailedAttempts + 1
	if err := s.attempts.UpdateFailedAttempts(ctx, live.ID, failed); err != nil {
		s.logger.Error("failed to record failed code attempt",
			slog.String("username", live.Username),
			slog.Any("error", err))
		return models.NewServiceFailure("unable to record failed attempt", err)
	}

	s.logger.Info("verification code rejected",
		slog.String("username", live.Username),
		slog.String("factor", string(live.FactorType)),
		slog.Int("failed_attempts", failed))
	return nil
}

func (s *VerificationService) smsStageStarted(ctx context.Context, username string, emailIssuedAt int64) (bool, error) {
	sms, err := s.liveRecord(ctx, username, models.FactorSMS)
	if err != nil {
		return false, err
	}
	return sms != nil && sms.IssuedAt >= emailIssuedAt, nil
}
