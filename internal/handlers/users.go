package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	"github.com/BradenHooton/ecosystem-user/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// UserService defines the profile operations available to authenticated callers
type UserService interface {
	GetCurrent(ctx context.Context, principal *models.Principal) (*models.Account, error)
	UpdateUser(ctx context.Context, principal *models.Principal, id string, update *models.AccountUpdate) (*models.Account, error)
	DeleteUser(ctx context.Context, principal *models.Principal, id string) error
	Search(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error)
}

// UserHandler handles profile requests
type UserHandler struct {
	service  UserService
	ipConfig *pkghttp.IPConfig
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, ipConfig *pkghttp.IPConfig, audit *logger.AuditLogger, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service:  service,
		ipConfig: ipConfig,
		audit:    audit,
		logger:   logger,
	}
}

// Me handles GET /me
// @Summary Get the caller's account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	account, err := h.service.GetCurrent(r.Context(), principal)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(account))
}

// UpdateUser handles PUT /users/{id}
// @Summary Update profile fields
// @Security BearerAuth
// @Accept json
// @Param id path string true "Account ID"
// @Param request body models.AccountUpdate true "Profile"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var update models.AccountUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	account, err := h.service.UpdateUser(r.Context(), principal, id, &update)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logAction(r, logger.EventAccountUpdate, id, principal)
	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(account))
}

// DeleteUser handles DELETE /users/{id}
// @Summary Delete an account
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	if err := h.service.DeleteUser(r.Context(), principal, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logAction(r, logger.EventAccountDelete, id, principal)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /users/search?username=&emailAddress=
// @Summary Find accounts by exact username and/or email
// @Security BearerAuth
// @Param username query string false "Username"
// @Param emailAddress query string false "Email address"
// @Produce json
// @Success 200 {array} AccountResponse
// @Router /users/search [get]
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	criteria := models.SearchCriteria{
		Username:     r.URL.Query().Get("username"),
		EmailAddress: r.URL.Query().Get("emailAddress"),
	}

	accounts, err := h.service.Search(r.Context(), criteria)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelsToResponse(accounts))
}

func (h *UserHandler) logAction(r *http.Request, event, targetID string, principal *models.Principal) {
	if h.audit == nil {
		return
	}
	h.audit.LogAccountAction(r.Context(), event, targetID, pkghttp.ExtractClientIP(r, h.ipConfig),
		map[string]string{"actor": principal.Username})
}
