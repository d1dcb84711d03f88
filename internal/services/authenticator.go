package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/pkg/auth"
)

// Authenticator verifies a username and password against the stored account
type Authenticator struct {
	accounts AccountRepository
	policy   models.LockoutPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(accounts AccountRepository, policy models.LockoutPolicy, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		accounts: accounts,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate returns the account when the credentials are good and the account may log in.
// Account state is checked before the password, then the password.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := a.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			auth.DummyCompare(password)
			return nil, models.ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	caps := account.Capabilities(a.policy, a.now())
	if !caps.AccountNonLocked {
		return nil, models.ErrAccountLocked
	}
	if !caps.Enabled {
		return nil, models.ErrAccountDisabled
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, models.ErrBadCredentials
		}
		a.logger.Error("stored password hash unusable", slog.String("username", username), slog.Any("error", err))
		return nil, models.ErrBadCredentials
	}

	return account, nil
}
