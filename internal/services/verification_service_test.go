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

var testVerificationConfig = VerificationConfig{CodeWindow: 5 * time.Minute, MaxFailedAttempts: 5}

func newTestVerificationService(attempts VerificationRepository, accounts AccountRepository, sms SMSProvider,
	issuer SMSCodeIssuer, now time.Time) *VerificationService {
	svc := NewVerificationService(attempts, accounts, sms, issuer, testVerificationConfig, slog.Default())
	svc.now = fixedClock(now)
	return svc
}

func TestVerificationService_CheckEmailCode_NoLiveRecord(t *testing.T) {
	issued := 0
	issuer := &MockSMSCodeIssuer{
		IssueSmsCodeFunc: func(ctx context.Context, username string) error {
			issued++
			return nil
		},
	}

	svc := newTestVerificationService(&MockVerificationRepository{}, &MockAccountRepository{}, &MockSMSProvider{}, issuer, time.Now())

	for _, code := range []string{"000000", "483920", ""} {
		ok, err := svc.CheckEmailCode(context.Background(), "nobody", code)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, issued)
}

func TestVerificationService_CheckEmailCode_SuccessIssuesSmsOnce(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	repo := &InMemoryVerificationRepository{}
	_, err := repo.Create(context.Background(), &models.VerificationAttempt{
		Username: "alice", FactorType: models.FactorEmail, IssuedAt: now.Add(-time.Minute).UnixMilli(), Code: "483920",
	})
	require.NoError(t, err)

	issued := 0
	issuer := &MockSMSCodeIssuer{
		IssueSmsCodeFunc: func(ctx context.Context, username string) error {
			issued++
			_, err := repo.Create(ctx, &models.VerificationAttempt{
				Username: username, FactorType: models.FactorSMS, IssuedAt: now.UnixMilli(), ProviderRequestID: "req-1",
			})
			return err
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, issuer, now)

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, issued)

	// Same code again is already used
	ok, err = svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, issued)
}

func TestVerificationService_CheckEmailCode_ExpiredWindow(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	repo := &InMemoryVerificationRepository{}
	_, err := repo.Create(context.Background(), &models.VerificationAttempt{
		Username: "alice", FactorType: models.FactorEmail, IssuedAt: now.Add(-6 * time.Minute).UnixMilli(), Code: "483920",
	})
	require.NoError(t, err)

	issuer := &MockSMSCodeIssuer{
		IssueSmsCodeFunc: func(ctx context.Context, username string) error {
			t.Fatal("sms code must not be issued for an expired email code")
			return nil
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, issuer, now)

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_CheckEmailCode_LockedSkipsCodeLookup(t *testing.T) {
	live := &models.VerificationAttempt{
		ID: "attempt-1", Username: "alice", FactorType: models.FactorEmail,
		IssuedAt: time.Now().UnixMilli(), Code: "483920", FailedAttempts: 5,
	}
	repo := &MockVerificationRepository{
		FindLatestFunc: func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
			return live, nil
		},
		FindCodeMatchesFunc: func(ctx context.Context, username string, factor models.FactorType, code string, sinceMillis int64) ([]*models.VerificationAttempt, error) {
			t.Fatal("code lookup must not happen on a locked record")
			return nil, nil
		},
		UpdateFailedAttemptsFunc: func(ctx context.Context, id string, failedAttempts int) error {
			t.Fatal("locked record must not be incremented")
			return nil
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_CheckEmailCode_SixthAttemptFails(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	repo := &InMemoryVerificationRepository{}
	_, err := repo.Create(context.Background(), &models.VerificationAttempt{
		Username: "alice", FactorType: models.FactorEmail, IssuedAt: now.UnixMilli(), Code: "483920",
	})
	require.NoError(t, err)

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, &MockSMSCodeIssuer{}, now)

	for i := 0; i < 5; i++ {
		ok, err := svc.CheckEmailCode(context.Background(), "alice", "111111")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.False(t, ok)

	records := repo.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 5, records[0].FailedAttempts)
}

func TestVerificationService_CheckEmailCode_StoreError(t *testing.T) {
	repo := &MockVerificationRepository{
		FindLatestFunc: func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "483920")
	assert.False(t, ok)
	var sf *models.ServiceFailure
	assert.ErrorAs(t, err, &sf)
}

func TestVerificationService_CheckEmailCode_SmsIssuanceFailurePropagates(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	repo := &InMemoryVerificationRepository{}
	_, err := repo.Create(context.Background(), &models.VerificationAttempt{
		Username: "alice", FactorType: models.FactorEmail, IssuedAt: now.UnixMilli(), Code: "483920",
	})
	require.NoError(t, err)

	issuer := &MockSMSCodeIssuer{
		IssueSmsCodeFunc: func(ctx context.Context, username string) error {
			return &models.CodeIssuanceFailure{Factor: models.FactorSMS, Message: "sms provider failure"}
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, issuer, now)

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "483920")
	assert.False(t, ok)
	var cif *models.CodeIssuanceFailure
	require.ErrorAs(t, err, &cif)
	assert.Equal(t, models.FactorSMS, cif.Factor)
}

// Issue "483920" at t=0, miss at 4m59s, hit at 4m59s, then retry at 6m.
func TestVerificationService_AliceScenario(t *testing.T) {
	t0 := time.UnixMilli(1_700_000_000_000)
	clock := t0
	now := func() time.Time { return clock }

	repo := &InMemoryVerificationRepository{}
	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			return NewTestAccountPending("acc-1", username, username+"@example.com"), nil
		},
	}
	smsStarts := 0
	sms := &MockSMSProvider{
		StartVerificationFunc: func(ctx context.Context, phoneNumber, brand string) (string, error) {
			smsStarts++
			return "req-alice", nil
		},
	}
	codes := &MockCodeGenerator{
		GenerateFunc: func(accountName string) (string, error) { return "483920", nil },
	}

	issuer := NewCodeIssuer(accounts, repo, codes, &MockEmailSender{}, sms, "Carey Development", slog.Default())
	issuer.now = now
	svc := NewVerificationService(repo, accounts, sms, issuer, testVerificationConfig, slog.Default())
	svc.now = now

	require.NoError(t, issuer.IssueEmailCode(context.Background(), "alice"))

	clock = t0.Add(4*time.Minute + 59*time.Second)

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	live, err := repo.FindLatest(context.Background(), "alice", models.FactorEmail)
	require.NoError(t, err)
	assert.Equal(t, 1, live.FailedAttempts)

	ok, err = svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, smsStarts)

	smsRecord, err := repo.FindLatest(context.Background(), "alice", models.FactorSMS)
	require.NoError(t, err)
	assert.Equal(t, "req-alice", smsRecord.ProviderRequestID)
	assert.Equal(t, 0, smsRecord.FailedAttempts)

	clock = t0.Add(6 * time.Minute)

	ok, err = svc.CheckEmailCode(context.Background(), "alice", "483920")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, smsStarts)
}

func TestVerificationService_CheckSmsCode_NoLiveRecord(t *testing.T) {
	sms := &MockSMSProvider{
		CheckVerificationFunc: func(ctx context.Context, requestID, code string) (bool, error) {
			t.Fatal("provider must not be called without a live record")
			return false, nil
		},
	}

	svc := newTestVerificationService(&MockVerificationRepository{}, &MockAccountRepository{}, sms, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckSmsCode(context.Background(), "alice", "1234")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_CheckSmsCode_SuccessGrantsAuthority(t *testing.T) {
	repo := &MockVerificationRepository{
		FindLatestFunc: func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
			assert.Equal(t, models.FactorSMS, factor)
			return &models.VerificationAttempt{ID: "a1", Username: username, FactorType: factor, ProviderRequestID: "req-1"}, nil
		},
	}
	sms := &MockSMSProvider{
		CheckVerificationFunc: func(ctx context.Context, requestID, code string) (bool, error) {
			assert.Equal(t, "req-1", requestID)
			assert.Equal(t, "1234", code)
			return true, nil
		},
	}
	var granted string
	accounts := &MockAccountRepository{
		AddAuthorityFunc: func(ctx context.Context, username, authority string) (*models.Account, error) {
			granted = authority
			return NewTestAccount("acc-1", username, "alice@example.com"), nil
		},
	}

	svc := newTestVerificationService(repo, accounts, sms, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckSmsCode(context.Background(), "alice", "1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.AuthorityBasicUser, granted)
}

func TestVerificationService_CheckSmsCode_RejectIncrements(t *testing.T) {
	repo := &MockVerificationRepository{
		FindLatestFunc: func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
			return &models.VerificationAttempt{ID: "a1", Username: username, FactorType: factor, ProviderRequestID: "req-1", FailedAttempts: 2}, nil
		},
	}
	var written int
	repo.UpdateFailedAttemptsFunc = func(ctx context.Context, id string, failedAttempts int) error {
		written = failedAttempts
		return nil
	}
	accounts := &MockAccountRepository{
		AddAuthorityFunc: func(ctx context.Context, username, authority string) (*models.Account, error) {
			t.Fatal("authority must not be granted on a rejected code")
			return nil, nil
		},
	}

	svc := newTestVerificationService(repo, accounts, &MockSMSProvider{}, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckSmsCode(context.Background(), "alice", "9999")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, written)
}

func TestVerificationService_CheckSmsCode_LockedSkipsProvider(t *testing.T) {
	repo := &MockVerificationRepository{
		FindLatestFunc: func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
			return &models.VerificationAttempt{ID: "a1", Username: username, FactorType: factor, ProviderRequestID: "req-1", FailedAttempts: 5}, nil
		},
	}
	sms := &MockSMSProvider{
		CheckVerificationFunc: func(ctx context.Context, requestID, code string) (bool, error) {
			t.Fatal("provider must not be called on a locked record")
			return true, nil
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, sms, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckSmsCode(context.Background(), "alice", "1234")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_CheckSmsCode_ProviderError(t *testing.T) {
	repo := &MockVerificationRepository{
		FindLatestFunc: func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
			return &models.VerificationAttempt{ID: "a1", Username: username, FactorType: factor, ProviderRequestID: "req-1"}, nil
		},
	}
	sms := &MockSMSProvider{
		CheckVerificationFunc: func(ctx context.Context, requestID, code string) (bool, error) {
			return false, errors.New("timeout")
		},
	}

	svc := newTestVerificationService(repo, &MockAccountRepository{}, sms, &MockSMSCodeIssuer{}, time.Now())

	ok, err := svc.CheckSmsCode(context.Background(), "alice", "1234")
	assert.False(t, ok)
	var sf *models.ServiceFailure
	assert.ErrorAs(t, err, &sf)
}

func TestVerificationService_ReissueResetsCeiling(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	repo := &InMemoryVerificationRepository{}
	_, err := repo.Create(context.Background(), &models.VerificationAttempt{
		Username: "alice", FactorType: models.FactorEmail, IssuedAt: now.Add(-2 * time.Minute).UnixMilli(), Code: "111111", FailedAttempts: 5,
	})
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), &models.VerificationAttempt{
		Username: "alice", FactorType: models.FactorEmail, IssuedAt: now.Add(-time.Minute).UnixMilli(), Code: "222222",
	})
	require.NoError(t, err)

	svc := newTestVerificationService(repo, &MockAccountRepository{}, &MockSMSProvider{}, &MockSMSCodeIssuer{}, now)

	ok, err := svc.CheckEmailCode(context.Background(), "alice", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}
