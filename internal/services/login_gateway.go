package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/pkg/logger"
)

// maxCredentialsBytes bounds the login payload
const maxCredentialsBytes = 4096

// CredentialAuthenticator checks a username and password
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
}

// TokenIssuer issues session tokens and reads their expiration back
type TokenIssuer interface {
	IssueToken(principal *models.Principal) (string, error)
	ExpirationOf(token string) (time.Time, error)
}

// FailedLoginRecorder maintains the per-account failure streak
type FailedLoginRecorder interface {
	RecordFailedLogin(ctx context.Context, username string)
	RecordSuccessfulLogin(ctx context.Context, username string)
}

// LoginAuditor records login attempts per client address and throttles noisy ones
type LoginAuditor interface {
	CheckThrottle(ctx context.Context, ip string) error
	RecordAttempt(ctx context.Context, ip, username string, succeeded bool) error
}

// Session is the outcome of a successful login
type Session struct {
	Token     string
	Account   *models.Account
	ExpiresAt time.Time
}

// ExpirationEpochMillis returns the token expiry in epoch milliseconds
func (s *Session) ExpirationEpochMillis() int64 {
	return s.ExpiresAt.UnixMilli()
}

// LoginGateway turns a credentials payload into a session or an AuthenticationFailure
type LoginGateway struct {
	authenticator CredentialAuthenticator
	tokens        TokenIssuer
	tracker       FailedLoginRecorder
	auditor       LoginAuditor
	timing        *auth.TimingDelay
	audit         *logger.AuditLogger
	logger        *slog.Logger
}

// NewLoginGateway creates a new LoginGateway
func NewLoginGateway(authenticator CredentialAuthenticator, tokens TokenIssuer, tracker FailedLoginRecorder,
	auditor LoginAuditor, timing *auth.TimingDelay, audit *logger.AuditLogger, logger *slog.Logger) *LoginGateway {
	return &LoginGateway{
		authenticator: authenticator,
		tokens:        tokens,
		tracker:       tracker,
		auditor:       auditor,
		timing:        timing,
		audit:         audit,
		logger:        logger,
	}
}

// Authenticate reads {username, password} from body and logs the caller in.
// Every rejection is an *models.AuthenticationFailure carrying the original message.
func (g *LoginGateway) Authenticate(ctx context.Context, body io.Reader, ip string) (*Session, error) {
	start := time.Now()

	creds, err := decodeCredentials(body)
	if err != nil {
		g.timing.WaitFrom(ctx, start, false)
		return nil, models.NewAuthenticationFailure(err)
	}

	if err := g.auditor.CheckThrottle(ctx, ip); err != nil {
		g.logAttempt(ctx, creds.Username, ip, false, err.Error())
		g.timing.WaitFrom(ctx, start, false)
		return nil, models.NewAuthenticationFailure(err)
	}

	account, err := g.authenticator.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		g.onFailure(ctx, creds.Username, ip, err)
		g.timing.WaitFrom(ctx, start, false)
		return nil, models.NewAuthenticationFailure(err)
	}

	token, err := g.tokens.IssueToken(account.Principal())
	if err != nil {
		g.logger.Error("failed to issue session token", slog.String("username", account.Username), slog.Any("error", err))
		return nil, models.NewAuthenticationFailure(err)
	}

	expiresAt, err := g.tokens.ExpirationOf(token)
	if err != nil {
		g.logger.Error("failed to read session token expiration", slog.String("username", account.Username), slog.Any("error", err))
		return nil, models.NewAuthenticationFailure(err)
	}

	// A login the audit log cannot see is refused
	if err := g.auditor.RecordAttempt(ctx, ip, account.Username, true); err != nil {
		return nil, err
	}
	g.tracker.RecordSuccessfulLogin(ctx, account.Username)
	g.logAttempt(ctx, account.Username, ip, true, "")
	g.timing.WaitFrom(ctx, start, true)

	return &Session{Token: token, Account: account, ExpiresAt: expiresAt}, nil
}

func (g *LoginGateway) onFailure(ctx context.Context, username, ip string, cause error) {
	if !errors.Is(cause, models.ErrBadCredentials) && !errors.Is(cause, models.ErrAccountLocked) &&
		!errors.Is(cause, models.ErrAccountDisabled) {
		g.logger.Error("authentication error", slog.String("username", username), slog.Any("error", cause))
	}

	g.tracker.RecordFailedLogin(ctx, username)
	if err := g.auditor.RecordAttempt(ctx, ip, username, false); err != nil {
		g.logger.Error("failed login not written to ip log", slog.String("ip_address", ip), slog.Any("error", err))
	}
	g.logAttempt(ctx, username, ip, false, cause.Error())
}

func (g *LoginGateway) logAttempt(ctx context.Context, username, ip string, success bool, reason string) {
	if g.audit == nil {
		return
	}
	g.audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType:     logger.EventLogin,
		Username:      username,
		IPAddress:     ip,
		Success:       success,
		FailureReason: reason,
	})
}

func decodeCredentials(body io.Reader) (*models.Credentials, error) {
	if body == nil {
		return nil, fmt.Errorf("missing credentials")
	}

	var creds models.Credentials
	decoder := json.NewDecoder(io.LimitReader(body, maxCredentialsBytes))
	if err := decoder.Decode(&creds); err != nil {
		return nil, fmt.Errorf("unreadable credentials: %w", err)
	}

	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	return &creds, nil
}
