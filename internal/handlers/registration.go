package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	"github.com/BradenHooton/ecosystem-user/pkg/logger"
)

// maxRegistrantBytes bounds the registration payload
const maxRegistrantBytes = 16 << 10

// RegistrantService validates and creates new accounts
type RegistrantService interface {
	Register(ctx context.Context, registrant *models.Registrant) (*models.Account, error)
}

// RegistrationHandler handles account sign-up
type RegistrationHandler struct {
	service  RegistrantService
	ipConfig *pkghttp.IPConfig
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(service RegistrantService, ipConfig *pkghttp.IPConfig,
	audit *logger.AuditLogger, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service:  service,
		ipConfig: ipConfig,
		audit:    audit,
		logger:   logger,
	}
}

// Register handles POST /registrants
// @Summary Register a new account and send the email verification code
// @Accept json
// @Param request body models.Registrant true "Registrant"
// @Produce json
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /registrants [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registrant models.Registrant
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegistrantBytes)).Decode(&registrant); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	account, err := h.service.Register(r.Context(), &registrant)
	h.logRegistration(r, &registrant, account, err)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountModelToResponse(account))
}

func (h *RegistrationHandler) logRegistration(r *http.Request, registrant *models.Registrant, account *models.Account, err error) {
	if h.audit == nil {
		return
	}

	event := logger.AuditEvent{
		EventType: logger.EventRegistration,
		Username:  registrant.Username,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
		Success:   err == nil,
	}
	if account != nil {
		event.AccountID = account.ID
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	h.audit.LogAuthAttempt(r.Context(), event)
}
