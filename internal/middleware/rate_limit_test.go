package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withClaims(req *http.Request, accountID string) *http.Request {
	claims := &models.TokenClaims{AccountID: accountID, Username: accountID, Type: "session"}
	return req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
}

// TestRateLimitByIP_Returns429AfterLimit verifies the limit is enforced per address
func TestRateLimitByIP_Returns429AfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2, IPConfig: &pkghttp.IPConfig{}})(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/authenticate", nil)
		req.RemoteAddr = "198.51.100.4:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 on third request, got %d", codes[2])
	}
}

// TestRateLimitByIP_IgnoresSpoofedForwardedFor verifies untrusted forwarding headers do not change the key
func TestRateLimitByIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1, IPConfig: &pkghttp.IPConfig{}})(okHandler())

	first := httptest.NewRequest("POST", "/authenticate", nil)
	first.RemoteAddr = "198.51.100.5:5000"
	first.Header.Set("X-Forwarded-For", "203.0.113.1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest("POST", "/authenticate", nil)
	second.RemoteAddr = "198.51.100.5:5001"
	second.Header.Set("X-Forwarded-For", "203.0.113.2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for same remote address, got %d", rec.Code)
	}
}

// TestRateLimitByAccount_IsolatesAccounts verifies each account gets its own bucket
func TestRateLimitByAccount_IsolatesAccounts(t *testing.T) {
	handler := RateLimitByAccount(RateLimitConfig{RequestsPerMinute: 1, IPConfig: &pkghttp.IPConfig{}})(okHandler())

	for _, id := range []string{"acc-1", "acc-2"} {
		req := withClaims(httptest.NewRequest("GET", "/me", nil), id)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("account %s: expected 200, got %d", id, rec.Code)
		}
	}

	req := withClaims(httptest.NewRequest("GET", "/me", nil), "acc-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for repeated account, got %d", rec.Code)
	}
}

// TestRateLimitByAccount_FallsBackToIP verifies anonymous requests are keyed by address
func TestRateLimitByAccount_FallsBackToIP(t *testing.T) {
	handler := RateLimitByAccount(RateLimitConfig{RequestsPerMinute: 1, IPConfig: &pkghttp.IPConfig{}})(okHandler())

	req := httptest.NewRequest("GET", "/users/search", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
