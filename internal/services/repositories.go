package services

import (
	"context"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Search(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, id string, account *models.Account) (*models.Account, error)
	UpdateLoginFailures(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error
	AddAuthority(ctx context.Context, username, authority string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}

// VerificationRepository defines the interface for one-time-code challenge records
type VerificationRepository interface {
	Create(ctx context.Context, attempt *models.VerificationAttempt) (*models.VerificationAttempt, error)
	FindLatest(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error)
	FindCodeMatches(ctx context.Context, username string, factor models.FactorType, code string, sinceMillis int64) ([]*models.VerificationAttempt, error)
	UpdateFailedAttempts(ctx context.Context, id string, failedAttempts int) error
}

// IPLogRepository defines the interface for the login attempt audit log
type IPLogRepository interface {
	Record(ctx context.Context, record *models.IPFailureRecord) error
	FetchFailuresSince(ctx context.Context, ip string, sinceMillis int64) ([]models.IPFailureRecord, error)
}

// TokenRevocationRepository defines the interface for ended sessions
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, accountID string, expiresAt time.Time, reason string) error
}
