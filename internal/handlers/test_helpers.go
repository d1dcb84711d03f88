package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/internal/services"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to the request context for authenticated endpoints
func WithAuthContext(req *http.Request, accountID, username string, authorities ...string) *http.Request {
	claims := &models.TokenClaims{
		Type:        "session",
		AccountID:   accountID,
		Username:    username,
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-" + accountID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// NewTestAccount creates an activated account for handler tests
func NewTestAccount(id, username string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:          id,
		Username:    username,
		Email:       username + "@example.com",
		FirstName:   "Test",
		LastName:    "User",
		Authorities: []string{models.AuthorityBasicUser},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MockLoginGateway implements LoginGateway for testing
type MockLoginGateway struct {
	AuthenticateFunc func(ctx context.Context, body io.Reader, ip string) (*services.Session, error)
}

func (m *MockLoginGateway) Authenticate(ctx context.Context, body io.Reader, ip string) (*services.Session, error) {
	if m.AuthenticateFunc == nil {
		return nil, models.NewAuthenticationFailure(models.ErrBadCredentials)
	}
	return m.AuthenticateFunc(ctx, body, ip)
}

// MockSessionEnder implements SessionEnder for testing
type MockSessionEnder struct {
	LogoutFunc func(ctx context.Context, claims *models.TokenClaims) error
}

func (m *MockSessionEnder) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims)
}

// MockRegistrantService implements RegistrantService for testing
type MockRegistrantService struct {
	RegisterFunc func(ctx context.Context, registrant *models.Registrant) (*models.Account, error)
}

func (m *MockRegistrantService) Register(ctx context.Context, registrant *models.Registrant) (*models.Account, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, registrant)
}

// MockVerificationService implements VerificationService for testing
type MockVerificationService struct {
	CheckEmailCodeFunc func(ctx context.Context, username, code string) (bool, error)
	CheckSmsCodeFunc   func(ctx context.Context, username, code string) (bool, error)
}

func (m *MockVerificationService) CheckEmailCode(ctx context.Context, username, code string) (bool, error) {
	if m.CheckEmailCodeFunc == nil {
		return false, nil
	}
	return m.CheckEmailCodeFunc(ctx, username, code)
}

func (m *MockVerificationService) CheckSmsCode(ctx context.Context, username, code string) (bool, error) {
	if m.CheckSmsCodeFunc == nil {
		return false, nil
	}
	return m.CheckSmsCodeFunc(ctx, username, code)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetCurrentFunc func(ctx context.Context, principal *models.Principal) (*models.Account, error)
	UpdateUserFunc func(ctx context.Context, principal *models.Principal, id string, update *models.AccountUpdate) (*models.Account, error)
	DeleteUserFunc func(ctx context.Context, principal *models.Principal, id string) error
	SearchFunc     func(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error)
}

func (m *MockUserService) GetCurrent(ctx context.Context, principal *models.Principal) (*models.Account, error) {
	if m.GetCurrentFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetCurrentFunc(ctx, principal)
}

func (m *MockUserService) UpdateUser(ctx context.Context, principal *models.Principal, id string, update *models.AccountUpdate) (*models.Account, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, principal, id, update)
}

func (m *MockUserService) DeleteUser(ctx context.Context, principal *models.Principal, id string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, principal, id)
}

func (m *MockUserService) Search(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error) {
	if m.SearchFunc == nil {
		return []*models.Account{}, nil
	}
	return m.SearchFunc(ctx, criteria)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	HealthCheckFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}
