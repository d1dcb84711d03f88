package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/internal/services"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	"github.com/BradenHooton/ecosystem-user/pkg/logger"
)

// LoginGateway turns a credentials payload into a session
type LoginGateway interface {
	Authenticate(ctx context.Context, body io.Reader, ip string) (*services.Session, error)
}

// SessionEnder revokes the caller's session token
type SessionEnder interface {
	Logout(ctx context.Context, claims *models.TokenClaims) error
}

// AuthHandler handles login and logout
type AuthHandler struct {
	gateway  LoginGateway
	sessions SessionEnder
	ipConfig *pkghttp.IPConfig
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(gateway LoginGateway, sessions SessionEnder, ipConfig *pkghttp.IPConfig,
	audit *logger.AuditLogger, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		gateway:  gateway,
		sessions: sessions,
		ipConfig: ipConfig,
		audit:    audit,
		logger:   logger,
	}
}

// Login handles POST /authenticate
// @Summary Log in with username and password
// @Accept json
// @Param request body models.Credentials true "Credentials"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /authenticate [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	session, err := h.gateway.Authenticate(r.Context(), r.Body, ip)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:                 session.Token,
		Account:               accountModelToResponse(session.Account),
		ExpirationEpochMillis: session.ExpirationEpochMillis(),
	})
}

// Logout handles DELETE /session by revoking the bearer token
// @Summary End the current session
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /session [delete]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.sessions.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		h.audit.LogAuthAttempt(r.Context(), logger.AuditEvent{
			EventType: logger.EventLogout,
			AccountID: claims.AccountID,
			Username:  claims.Username,
			IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
			UserAgent: r.UserAgent(),
			Success:   true,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}
