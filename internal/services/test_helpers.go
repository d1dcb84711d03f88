package services

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.Account, error)
	GetByUsernameFunc       func(ctx context.Context, username string) (*models.Account, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.Account, error)
	SearchFunc              func(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error)
	CreateFunc              func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateFunc              func(ctx context.Context, id string, account *models.Account) (*models.Account, error)
	UpdateLoginFailuresFunc func(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error
	AddAuthorityFunc        func(ctx context.Context, username, authority string) (*models.Account, error)
	DeleteFunc              func(ctx context.Context, id string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Search(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, criteria)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) Update(ctx context.Context, id string, account *models.Account) (*models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) UpdateLoginFailures(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error {
	if m.UpdateLoginFailuresFunc != nil {
		return m.UpdateLoginFailuresFunc(ctx, id, failedAttempts, lastFailed)
	}
	return nil
}

func (m *MockAccountRepository) AddAuthority(ctx context.Context, username, authority string) (*models.Account, error) {
	if m.AddAuthorityFunc != nil {
		return m.AddAuthorityFunc(ctx, username, authority)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockVerificationRepository implements VerificationRepository for testing
type MockVerificationRepository struct {
	CreateFunc               func(ctx context.Context, attempt *models.VerificationAttempt) (*models.VerificationAttempt, error)
	FindLatestFunc           func(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error)
	FindCodeMatchesFunc      func(ctx context.Context, username string, factor models.FactorType, code string, sinceMillis int64) ([]*models.VerificationAttempt, error)
	UpdateFailedAttemptsFunc func(ctx context.Context, id string, failedAttempts int) error
}

func (m *MockVerificationRepository) Create(ctx context.Context, attempt *models.VerificationAttempt) (*models.VerificationAttempt, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, attempt)
	}
	return attempt, nil
}

func (m *MockVerificationRepository) FindLatest(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
	if m.FindLatestFunc != nil {
		return m.FindLatestFunc(ctx, username, factor)
	}
	return nil, models.ErrNotFound
}

func (m *MockVerificationRepository) FindCodeMatches(ctx context.Context, username string, factor models.FactorType, code string, sinceMillis int64) ([]*models.VerificationAttempt, error) {
	if m.FindCodeMatchesFunc != nil {
		return m.FindCodeMatchesFunc(ctx, username, factor, code, sinceMillis)
	}
	return []*models.VerificationAttempt{}, nil
}

func (m *MockVerificationRepository) UpdateFailedAttempts(ctx context.Context, id string, failedAttempts int) error {
	if m.UpdateFailedAttemptsFunc != nil {
		return m.UpdateFailedAttemptsFunc(ctx, id, failedAttempts)
	}
	return nil
}

// InMemoryVerificationRepository is a working VerificationRepository for multi-step scenarios
type InMemoryVerificationRepository struct {
	mu      sync.Mutex
	records []*models.VerificationAttempt
	nextID  int
}

func (r *InMemoryVerificationRepository) Create(ctx context.Context, attempt *models.VerificationAttempt) (*models.VerificationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *attempt
	stored.ID = "attempt-" + strconv.Itoa(r.nextID)
	r.records = append(r.records, &stored)
	out := stored
	return &out, nil
}

func (r *InMemoryVerificationRepository) FindLatest(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.VerificationAttempt
	for _, rec := range r.records {
		if rec.Username == username && rec.FactorType == factor {
			if latest == nil || rec.IssuedAt >= latest.IssuedAt {
				latest = rec
			}
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (r *InMemoryVerificationRepository) FindCodeMatches(ctx context.Context, username string, factor models.FactorType, code string, sinceMillis int64) ([]*models.VerificationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.VerificationAttempt{}
	for _, rec := range r.records {
		if rec.Username == username && rec.FactorType == factor && rec.Code == code && rec.IssuedAt >= sinceMillis {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt > out[j].IssuedAt })
	return out, nil
}

func (r *InMemoryVerificationRepository) UpdateFailedAttempts(ctx context.Context, id string, failedAttempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.FailedAttempts = failedAttempts
			return nil
		}
	}
	return models.ErrNotFound
}

// Records returns a copy of every stored record
func (r *InMemoryVerificationRepository) Records() []models.VerificationAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.VerificationAttempt, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out
}

// MockIPLogRepository implements IPLogRepository for testing
type MockIPLogRepository struct {
	RecordFunc             func(ctx context.Context, record *models.IPFailureRecord) error
	FetchFailuresSinceFunc func(ctx context.Context, ip string, sinceMillis int64) ([]models.IPFailureRecord, error)
}

func (m *MockIPLogRepository) Record(ctx context.Context, record *models.IPFailureRecord) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, record)
	}
	return nil
}

func (m *MockIPLogRepository) FetchFailuresSince(ctx context.Context, ip string, sinceMillis int64) ([]models.IPFailureRecord, error) {
	if m.FetchFailuresSinceFunc != nil {
		return m.FetchFailuresSinceFunc(ctx, ip, sinceMillis)
	}
	return []models.IPFailureRecord{}, nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc func(ctx context.Context, jti, accountID string, expiresAt time.Time, reason string) error
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, accountID string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, accountID, expiresAt, reason)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendFunc func(ctx context.Context, to, subject, body string) error
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, body)
	}
	return nil
}

// MockSMSProvider implements SMSProvider for testing
type MockSMSProvider struct {
	StartVerificationFunc  func(ctx context.Context, phoneNumber, brand string) (string, error)
	CheckVerificationFunc  func(ctx context.Context, requestID, code string) (bool, error)
	CancelVerificationFunc func(ctx context.Context, requestID string) error
}

func (m *MockSMSProvider) StartVerification(ctx context.Context, phoneNumber, brand string) (string, error) {
	if m.StartVerificationFunc != nil {
		return m.StartVerificationFunc(ctx, phoneNumber, brand)
	}
	return "req-1", nil
}

func (m *MockSMSProvider) CheckVerification(ctx context.Context, requestID, code string) (bool, error) {
	if m.CheckVerificationFunc != nil {
		return m.CheckVerificationFunc(ctx, requestID, code)
	}
	return false, nil
}

func (m *MockSMSProvider) CancelVerification(ctx context.Context, requestID string) error {
	if m.CancelVerificationFunc != nil {
		return m.CancelVerificationFunc(ctx, requestID)
	}
	return nil
}

// MockCaptchaScorer implements CaptchaScorer for testing
type MockCaptchaScorer struct {
	ScoreFunc func(ctx context.Context, proofToken string) (float64, error)
}

func (m *MockCaptchaScorer) Score(ctx context.Context, proofToken string) (float64, error) {
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, proofToken)
	}
	return 0.9, nil
}

// MockCodeGenerator implements CodeGenerator for testing
type MockCodeGenerator struct {
	GenerateFunc func(accountName string) (string, error)
}

func (m *MockCodeGenerator) Generate(accountName string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(accountName)
	}
	return "123456", nil
}

// MockSMSCodeIssuer implements SMSCodeIssuer for testing
type MockSMSCodeIssuer struct {
	IssueSmsCodeFunc func(ctx context.Context, username string) error
}

func (m *MockSMSCodeIssuer) IssueSmsCode(ctx context.Context, username string) error {
	if m.IssueSmsCodeFunc != nil {
		return m.IssueSmsCodeFunc(ctx, username)
	}
	return nil
}

// MockEmailCodeIssuer implements EmailCodeIssuer for testing
type MockEmailCodeIssuer struct {
	IssueEmailCodeFunc func(ctx context.Context, username string) error
}

func (m *MockEmailCodeIssuer) IssueEmailCode(ctx context.Context, username string) error {
	if m.IssueEmailCodeFunc != nil {
		return m.IssueEmailCodeFunc(ctx, username)
	}
	return nil
}

// MockCredentialAuthenticator implements CredentialAuthenticator for testing
type MockCredentialAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (*models.Account, error)
}

func (m *MockCredentialAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, username, password)
	}
	return nil, models.ErrBadCredentials
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueTokenFunc   func(principal *models.Principal) (string, error)
	ExpirationOfFunc func(token string) (time.Time, error)
}

func (m *MockTokenIssuer) IssueToken(principal *models.Principal) (string, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(principal)
	}
	return "token-" + principal.Username, nil
}

func (m *MockTokenIssuer) ExpirationOf(token string) (time.Time, error) {
	if m.ExpirationOfFunc != nil {
		return m.ExpirationOfFunc(token)
	}
	return time.UnixMilli(1700000000000), nil
}

// MockFailedLoginRecorder implements FailedLoginRecorder for testing
type MockFailedLoginRecorder struct {
	RecordFailedLoginFunc     func(ctx context.Context, username string)
	RecordSuccessfulLoginFunc func(ctx context.Context, username string)
}

func (m *MockFailedLoginRecorder) RecordFailedLogin(ctx context.Context, username string) {
	if m.RecordFailedLoginFunc != nil {
		m.RecordFailedLoginFunc(ctx, username)
	}
}

func (m *MockFailedLoginRecorder) RecordSuccessfulLogin(ctx context.Context, username string) {
	if m.RecordSuccessfulLoginFunc != nil {
		m.RecordSuccessfulLoginFunc(ctx, username)
	}
}

// MockLoginAuditor implements LoginAuditor for testing
type MockLoginAuditor struct {
	CheckThrottleFunc func(ctx context.Context, ip string) error
	RecordAttemptFunc func(ctx context.Context, ip, username string, succeeded bool) error
}

func (m *MockLoginAuditor) CheckThrottle(ctx context.Context, ip string) error {
	if m.CheckThrottleFunc != nil {
		return m.CheckThrottleFunc(ctx, ip)
	}
	return nil
}

func (m *MockLoginAuditor) RecordAttempt(ctx context.Context, ip, username string, succeeded bool) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, ip, username, succeeded)
	}
	return nil
}

// NewTestAccount creates an activated test account
func NewTestAccount(id, username, email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:          id,
		Username:    username,
		Email:       email,
		FirstName:   "Test",
		LastName:    "User",
		PhoneNumber: "+15555550100",
		Authorities: []string{models.AuthorityBasicUser},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestAccountPending creates an account that has not completed verification
func NewTestAccountPending(id, username, email string) *models.Account {
	account := NewTestAccount(id, username, email)
	account.Authorities = []string{}
	return account
}

// NewTestAccountWithFailures creates an account with a failure streak
func NewTestAccountWithFailures(id, username string, failed int, lastFailed time.Time) *models.Account {
	account := NewTestAccount(id, username, username+"@example.com")
	account.FailedLoginAttempts = &failed
	account.LastFailedLoginTime = &lastFailed
	return account
}

// NewTestRegistrant creates a registrant that passes field validation
func NewTestRegistrant(username, email string) *models.Registrant {
	return &models.Registrant{
		FirstName:         "Alice",
		LastName:          "Smith",
		Username:          username,
		Password:          "s3cretPass!",
		EmailAddress:      email,
		Phone:             "+15555550100",
		RecaptchaResponse: "proof-token",
	}
}

// fixedClock returns a now func pinned to t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
