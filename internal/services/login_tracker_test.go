package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginTracker_StreakLifecycle(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	account := NewTestAccount("acc-1", "alice", "alice@example.com")

	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			copied := *account
			return &copied, nil
		},
		UpdateLoginFailuresFunc: func(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error {
			assert.Equal(t, "acc-1", id)
			account.FailedLoginAttempts = failedAttempts
			account.LastFailedLoginTime = lastFailed
			return nil
		},
	}

	tracker := NewLoginTracker(accounts, slog.Default())
	tracker.now = fixedClock(now)

	tracker.RecordFailedLogin(context.Background(), "alice")
	require.NotNil(t, account.FailedLoginAttempts)
	assert.Equal(t, 1, *account.FailedLoginAttempts)
	require.NotNil(t, account.LastFailedLoginTime)
	assert.True(t, now.Equal(*account.LastFailedLoginTime))

	tracker.RecordFailedLogin(context.Background(), "alice")
	require.NotNil(t, account.FailedLoginAttempts)
	assert.Equal(t, 2, *account.FailedLoginAttempts)

	tracker.RecordSuccessfulLogin(context.Background(), "alice")
	assert.Nil(t, account.FailedLoginAttempts)
}

func TestLoginTracker_SuccessWithoutStreakIsNoop(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			return NewTestAccount("acc-1", username, "alice@example.com"), nil
		},
		UpdateLoginFailuresFunc: func(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error {
			t.Fatal("nothing to persist without a streak")
			return nil
		},
	}

	NewLoginTracker(accounts, slog.Default()).RecordSuccessfulLogin(context.Background(), "alice")
}

func TestLoginTracker_SwallowsErrors(t *testing.T) {
	tests := []struct {
		name     string
		accounts *MockAccountRepository
	}{
		{
			name:     "account not found",
			accounts: &MockAccountRepository{},
		},
		{
			name: "lookup error",
			accounts: &MockAccountRepository{
				GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
					return nil, errors.New("connection reset")
				},
			},
		},
		{
			name: "write error",
			accounts: &MockAccountRepository{
				GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
					return NewTestAccountWithFailures("acc-1", username, 2, time.Now()), nil
				},
				UpdateLoginFailuresFunc: func(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error {
					return errors.New("deadlock detected")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewLoginTracker(tt.accounts, slog.Default())
			assert.NotPanics(t, func() {
				tracker.RecordFailedLogin(context.Background(), "ghost")
				tracker.RecordSuccessfulLogin(context.Background(), "ghost")
			})
		})
	}
}
