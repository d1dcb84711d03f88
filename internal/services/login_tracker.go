package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
)

// LoginTracker keeps each account's consecutive failed-login streak.
// It never returns errors: bookkeeping problems are logged and swallowed.
type LoginTracker struct {
	accounts AccountRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewLoginTracker creates a new LoginTracker
func NewLoginTracker(accounts AccountRepository, logger *slog.Logger) *LoginTracker {
	return &LoginTracker{
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordFailedLogin extends the failure streak by one and stamps the failure time
func (t *LoginTracker) RecordFailedLogin(ctx context.Context, username string) {
	account, ok := t.load(ctx, username)
	if !ok {
		return
	}

	failed := 1
	if account.FailedLoginAttempts != nil {
		failed = *account.FailedLoginAttempts + 1
	}
	now := t.now()

	if err := t.accounts.UpdateLoginFailures(ctx, account.ID, &failed, &now); err != nil {
		t.logger.Error("failed to record failed login",
			slog.String("username", username),
			slog.Any("error", err))
		return
	}

	t.logger.Info("failed login recorded",
		slog.String("username", username),
		slog.Int("failed_login_attempts", failed))
}

// RecordSuccessfulLogin clears the failure streak if one exists
func (t *LoginTracker) RecordSuccessfulLogin(ctx context.Context, username string) {
	account, ok := t.load(ctx, username)
	if !ok || account.FailedLoginAttempts == nil {
		return
	}

	if err := t.accounts.UpdateLoginFailures(ctx, account.ID, nil, account.LastFailedLoginTime); err != nil {
		t.logger.Error("failed to reset failed logins",
			slog.String("username", username),
			slog.Any("error", err))
	}
}

func (t *LoginTracker) load(ctx context.Context, username string) (*models.Account, bool) {
	account, err := t.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			t.logger.Warn("login tracking skipped, account not found", slog.String("username", username))
		} else {
			t.logger.Error("login tracking skipped, account lookup failed",
				slog.String("username", username),
				slog.Any("error", err))
		}
		return nil, false
	}
	return account, true
}
