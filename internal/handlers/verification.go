package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	"github.com/BradenHooton/ecosystem-user/pkg/logger"
)

// VerificationService checks registration codes
type VerificationService interface {
	CheckEmailCode(ctx context.Context, username, code string) (bool, error)
	CheckSmsCode(ctx context.Context, username, code string) (bool, error)
}

// VerificationHandler handles the two registration code checks.
// A rejected code and an unknown username both answer 404.
type VerificationHandler struct {
	service  VerificationService
	ipConfig *pkghttp.IPConfig
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(service VerificationService, ipConfig *pkghttp.IPConfig,
	audit *logger.AuditLogger, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{
		service:  service,
		ipConfig: ipConfig,
		audit:    audit,
		logger:   logger,
	}
}

// EmailVerificationStatus handles GET /emailVerificationStatus?username=&code=
// @Summary Check the emailed code and send the text code
// @Param username query string true "Username"
// @Param code query string true "Code"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /emailVerificationStatus [get]
func (h *VerificationHandler) EmailVerificationStatus(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, logger.EventEmailVerification, h.service.CheckEmailCode)
}

// SmsVerificationStatus handles GET /smsVerificationStatus?username=&code=
// @Summary Check the texted code and activate the account
// @Param username query string true "Username"
// @Param code query string true "Code"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /smsVerificationStatus [get]
func (h *VerificationHandler) SmsVerificationStatus(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, logger.EventSMSVerification, h.service.CheckSmsCode)
}

func (h *VerificationHandler) check(w http.ResponseWriter, r *http.Request, event string,
	checkFn func(ctx context.Context, username, code string) (bool, error)) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if username == "" || code == "" {
		pkghttp.WriteNotFound(w, msgNotFound)
		return
	}

	ok, err := checkFn(r.Context(), username, code)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		h.audit.LogAuthAttempt(r.Context(), logger.AuditEvent{
			EventType: event,
			Username:  username,
			IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
			Success:   ok,
		})
	}

	if !ok {
		pkghttp.WriteNotFound(w, msgNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
