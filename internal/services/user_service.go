package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/internal/validation"
)

// UserService handles profile reads and edits for authenticated callers
type UserService struct {
	accounts AccountRepository
	revoked  TokenRevocationRepository
	logger   *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(accounts AccountRepository, revoked TokenRevocationRepository, logger *slog.Logger) *UserService {
	return &UserService{
		accounts: accounts,
		revoked:  revoked,
		logger:   logger,
	}
}

// GetCurrent loads the caller's own account
func (s *UserService) GetCurrent(ctx context.Context, principal *models.Principal) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", principal.AccountID), slog.Any("error", err))
		return nil, models.NewServiceFailure("Problem retrieving user!", err)
	}
	return account, nil
}

// UpdateUser applies a profile edit. Only the owner or an admin may edit.
func (s *UserService) UpdateUser(ctx context.Context, principal *models.Principal, id string, update *models.AccountUpdate) (*models.Account, error) {
	if !canModify(principal, id) {
		s.logger.Warn("update denied",
			slog.String("principal", principal.Username),
			slog.String("target_id", id))
		return nil, models.ErrUnauthorized
	}

	if errs := validation.Struct(update); len(errs) > 0 {
		return nil, &models.ValidationFailure{Message: "Invalid user", Errors: errs}
	}

	existing, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load account for update", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.NewServiceFailure("Problem updating user!", err)
	}

	update.Apply(existing)

	updated, err := s.accounts.Update(ctx, id, existing)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.NewServiceFailure("Problem updating user!", err)
	}

	s.logger.Info("account updated", slog.String("account_id", id), slog.String("by", principal.Username))
	return updated, nil
}

// DeleteUser removes an account. Only the owner or an admin may delete.
func (s *UserService) DeleteUser(ctx context.Context, principal *models.Principal, id string) error {
	if !canModify(principal, id) {
		s.logger.Warn("delete denied",
			slog.String("principal", principal.Username),
			slog.String("target_id", id))
		return models.ErrUnauthorized
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete account", slog.String("account_id", id), slog.Any("error", err))
		return models.NewServiceFailure("Problem deleting user!", err)
	}

	s.logger.Info("account deleted", slog.String("account_id", id), slog.String("by", principal.Username))
	return nil
}

// Search finds accounts by exact username and/or email. Empty criteria match nothing.
func (s *UserService) Search(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error) {
	if criteria.IsEmpty() {
		return []*models.Account{}, nil
	}

	accounts, err := s.accounts.Search(ctx, criteria)
	if err != nil {
		s.logger.Error("account search failed", slog.Any("error", err))
		return nil, models.NewServiceFailure("Problem searching users!", err)
	}
	return accounts, nil
}

// Logout revokes the session token until it would have expired anyway
func (s *UserService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if claims.ID == "" {
		return models.ErrBadRequest
	}

	expiresAt := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revoked.RevokeToken(ctx, claims.ID, claims.AccountID, expiresAt, "logout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("account_id", claims.AccountID), slog.Any("error", err))
		return models.NewServiceFailure("Problem logging out!", err)
	}

	s.logger.Info("session ended", slog.String("account_id", claims.AccountID))
	return nil
}

func canModify(principal *models.Principal, id string) bool {
	if principal == nil {
		return false
	}
	return principal.AccountID == id || principal.HasAnyAuthority(models.AuthorityAdminUser)
}
