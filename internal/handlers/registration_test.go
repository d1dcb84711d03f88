package handlers_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/ecosystem-user/internal/handlers"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistrationHandler(service handlers.RegistrantService) *handlers.RegistrationHandler {
	return handlers.NewRegistrationHandler(service, &pkghttp.IPConfig{}, nil, slog.Default())
}

func TestRegister_Created(t *testing.T) {
	service := &handlers.MockRegistrantService{
		RegisterFunc: func(ctx context.Context, registrant *models.Registrant) (*models.Account, error) {
			assert.Equal(t, "alice1", registrant.Username)
			assert.Equal(t, "proof-token", registrant.RecaptchaResponse)
			account := handlers.NewTestAccount("acc-1", registrant.Username)
			account.Authorities = nil
			return account, nil
		},
	}

	body := `{"firstName":"Alice","lastName":"Smith","username":"alice1","password":"s3cretPass!",` +
		`"emailAddress":"alice1@example.com","phone":"+15555550100","g-recaptcha-response":"proof-token"}`
	req := httptest.NewRequest("POST", "/registrants", strings.NewReader(body))
	w := httptest.NewRecorder()
	newRegistrationHandler(service).Register(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "acc-1", resp.ID)
	assert.Equal(t, []string{}, resp.Authorities)
	assert.NotContains(t, w.Body.String(), "s3cretPass!")
}

func TestRegister_ValidationErrorsListed(t *testing.T) {
	service := &handlers.MockRegistrantService{
		RegisterFunc: func(ctx context.Context, registrant *models.Registrant) (*models.Account, error) {
			return nil, &models.ValidationFailure{
				Message: "Invalid registrant",
				Errors: []models.FieldError{
					{Field: "username", Code: "usernameTaken", Message: "Username is taken"},
					{Message: "Google thinks you're a bot"},
				},
			}
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/registrants", models.Registrant{Username: "bob12"})
	w := httptest.NewRecorder()
	newRegistrationHandler(service).Register(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "username", resp.Errors[0].Field)
	assert.Equal(t, "usernameTaken", resp.Errors[0].Code)
	assert.Empty(t, resp.Errors[1].Field)
}

func TestRegister_EmailCodeFailure(t *testing.T) {
	service := &handlers.MockRegistrantService{
		RegisterFunc: func(ctx context.Context, registrant *models.Registrant) (*models.Account, error) {
			return nil, &models.CodeIssuanceFailure{Factor: models.FactorEmail, Message: "unable to send code", Err: errors.New("ses: throttled")}
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/registrants", models.Registrant{Username: "alice1"})
	w := httptest.NewRecorder()
	newRegistrationHandler(service).Register(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
	assert.Equal(t, "Email code create failed!", resp.Message)
	assert.NotContains(t, w.Body.String(), "throttled")
}

func TestRegister_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/registrants", strings.NewReader("{"))
	w := httptest.NewRecorder()
	newRegistrationHandler(&handlers.MockRegistrantService{}).Register(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}
