package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
)

// Outward messages. Internal detail is logged, never written to the client.
const (
	msgAuthenticationFailed = "Authentication failed"
	msgUnauthorized         = "Not authorized to modify this resource"
	msgNotFound             = "Not found"
	msgEmailCodeFailed      = "Email code create failed!"
	msgTextCodeFailed       = "Text code create failed!"
	msgInternal             = "An unexpected error occurred"
)

// writeServiceError maps a service error onto a status code and a safe message
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		validationFailure *models.ValidationFailure
		authFailure       *models.AuthenticationFailure
		issuanceFailure   *models.CodeIssuanceFailure
		serviceFailure    *models.ServiceFailure
	)

	switch {
	case errors.As(err, &validationFailure):
		pkghttp.WriteValidationErrors(w, validationFailure.Message, toFieldErrors(validationFailure.Errors))

	case errors.As(err, &authFailure):
		logger.Info("authentication rejected",
			slog.String("path", r.URL.Path),
			slog.String("reason", authFailure.Message))
		pkghttp.WriteUnauthorized(w, msgAuthenticationFailed)

	case errors.As(err, &issuanceFailure):
		logger.Error("code issuance failed",
			slog.String("path", r.URL.Path),
			slog.String("factor", string(issuanceFailure.Factor)),
			slog.Any("error", err))
		msg := msgEmailCodeFailed
		if issuanceFailure.Factor == models.FactorSMS {
			msg = msgTextCodeFailed
		}
		pkghttp.WriteInternalError(w, msg)

	case errors.As(err, &serviceFailure):
		logger.Error("service failure", slog.String("path", r.URL.Path), slog.Any("error", err))
		pkghttp.WriteInternalError(w, msgInternal)

	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, msgNotFound)

	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, msgUnauthorized)

	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")

	default:
		logger.Error("unhandled error", slog.String("path", r.URL.Path), slog.Any("error", err))
		pkghttp.WriteInternalError(w, msgInternal)
	}
}

func toFieldErrors(errs []models.FieldError) []pkghttp.FieldError {
	out := make([]pkghttp.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, pkghttp.FieldError{Field: fe.Field, Code: fe.Code, Message: fe.Message})
	}
	return out
}
