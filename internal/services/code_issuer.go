package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/pkg/logger"
)

const (
	emailCodeSubject  = "Your Verification Code"
	emailCodeTemplate = "\n\nYour verification code for Carey Development, LLC and the CarEcosystem Network.\n\nUse verification code: %s"
)

// CodeGenerator produces one-time numeric codes
type CodeGenerator interface {
	Generate(accountName string) (string, error)
}

// CodeIssuer creates verification challenges and dispatches them to the account's email or phone
type CodeIssuer struct {
	accounts AccountRepository
	attempts VerificationRepository
	codes    CodeGenerator
	email    EmailSender
	sms      SMSProvider
	brand    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewCodeIssuer creates a new CodeIssuer
func NewCodeIssuer(accounts AccountRepository, attempts VerificationRepository, codes CodeGenerator,
	email EmailSender, sms SMSProvider, brand string, logger *slog.Logger) *CodeIssuer {
	return &CodeIssuer{
		accounts: accounts,
		attempts: attempts,
		codes:    codes,
		email:    email,
		sms:      sms,
		brand:    brand,
		logger:   logger,
		now:      time.Now,
	}
}

// IssueEmailCode stores a new live EMAIL challenge for username and mails its code
func (ci *CodeIssuer) IssueEmailCode(ctx context.Context, username string) error {
	account, err := ci.accounts.GetByUsername(ctx, username)
	if err != nil {
		ci.logger.Error("failed to load account for email code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorEmail, Message: "unable to load account " + username, Err: err}
	}

	code, err := ci.codes.Generate(username)
	if err != nil {
		ci.logger.Error("failed to generate email code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorEmail, Message: "unable to generate code", Err: err}
	}

	attempt := &models.VerificationAttempt{
		Username:   username,
		FactorType: models.FactorEmail,
		IssuedAt:   ci.now().UnixMilli(),
		Code:       code,
	}
	if _, err := ci.attempts.Create(ctx, attempt); err != nil {
		ci.logger.Error("failed to store email code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorEmail, Message: "unable to store code", Err: err}
	}

	if err := ci.email.Send(ctx, account.Email, emailCodeSubject, fmt.Sprintf(emailCodeTemplate, code)); err != nil {
		ci.logger.Error("failed to send email code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorEmail, Message: "unable to send code", Err: err}
	}

	ci.logger.Info("email code issued", slog.String("username", username))
	return nil
}

// IssueSmsCode asks the SMS provider to text a code to the account's phone and stores
// the provider's request id as the new live SMS challenge
func (ci *CodeIssuer) IssueSmsCode(ctx context.Context, username string) error {
	account, err := ci.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			ci.logger.Error("unable to create text code for missing account", slog.String("username", username))
			return &models.CodeIssuanceFailure{Factor: models.FactorSMS, Message: "User " + username + " doesn't exist", Err: err}
		}
		ci.logger.Error("failed to load account for text code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorSMS, Message: "unable to load account " + username, Err: err}
	}

	ci.cancelPending(ctx, username)

	requestID, err := ci.sms.StartVerification(ctx, account.PhoneNumber, ci.brand)
	if err != nil {
		ci.logger.Error("problem creating text code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorSMS, Message: "sms provider failure", Err: err}
	}
	if requestID == "" {
		ci.logger.Error("sms provider returned no request id", slog.String("username", username))
		return &models.CodeIssuanceFailure{Factor: models.FactorSMS, Message: "no verification request created for " + username}
	}

	attempt := &models.VerificationAttempt{
		Username:          username,
		FactorType:        models.FactorSMS,
		IssuedAt:          ci.now().UnixMilli(),
		ProviderRequestID: requestID,
	}
	if _, err := ci.attempts.Create(ctx, attempt); err != nil {
		ci.logger.Error("failed to store text code", slog.String("username", username), slog.Any("error", err))
		return &models.CodeIssuanceFailure{Factor: models.FactorSMS, Message: "unable to store code", Err: err}
	}

	ci.logger.Info("text code issued",
		slog.String("username", username),
		slog.String("phone", logger.MaskedPhone(account.PhoneNumber)),
		slog.String("request_id", requestID))
	return nil
}

// cancelPending ends the provider request behind the current live SMS record, if any.
// The provider refuses a second concurrent request to the same number otherwise.
func (ci *CodeIssuer) cancelPending(ctx context.Context, username string) {
	live, err := ci.attempts.FindLatest(ctx, username, models.FactorSMS)
	if err != nil || live.ProviderRequestID == "" {
		return
	}

	if err := ci.sms.CancelVerification(ctx, live.ProviderRequestID); err != nil {
		ci.logger.Debug("previous sms verification not cancelled",
			slog.String("username", username),
			slog.String("request_id", live.ProviderRequestID),
			slog.Any("error", err))
	}
}
