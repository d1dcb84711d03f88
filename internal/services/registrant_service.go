package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/internal/validation"
	"github.com/BradenHooton/ecosystem-user/pkg/auth"
	"golang.org/x/sync/errgroup"
)

// Registration error texts
const (
	msgUsernameTaken = "Username is taken"
	msgEmailTaken    = "Email address is taken"
	msgLikelyBot     = "Google thinks you're a bot"
)

// EmailCodeIssuer starts the EMAIL stage for a new account
type EmailCodeIssuer interface {
	IssueEmailCode(ctx context.Context, username string) error
}

// CaptchaConfig turns the anti-automation check on and sets its pass mark
type CaptchaConfig struct {
	Enabled  bool
	MinScore float64
}

// RegistrantService validates registration payloads and creates accounts
type RegistrantService struct {
	accounts AccountRepository
	captcha  CaptchaScorer
	issuer   EmailCodeIssuer
	config   CaptchaConfig
	logger   *slog.Logger
}

// NewRegistrantService creates a new RegistrantService. captcha may be nil when the check is disabled.
func NewRegistrantService(accounts AccountRepository, captcha CaptchaScorer, issuer EmailCodeIssuer,
	config CaptchaConfig, logger *slog.Logger) *RegistrantService {
	return &RegistrantService{
		accounts: accounts,
		captcha:  captcha,
		issuer:   issuer,
		config:   config,
		logger:   logger,
	}
}

// ValidateRegistrant runs field rules, username and email uniqueness and the CAPTCHA score,
// and returns every problem found as one *models.ValidationFailure.
// Lookup errors abort with a *models.ServiceFailure instead.
func (s *RegistrantService) ValidateRegistrant(ctx context.Context, registrant *models.Registrant) error {
	errs := validation.Struct(registrant)

	var usernameErr, emailErr, captchaErr *models.FieldError

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		usernameErr, err = s.checkUniqueUsername(gctx, registrant.Username)
		return err
	})
	g.Go(func() (err error) {
		emailErr, err = s.checkUniqueEmail(gctx, registrant.EmailAddress)
		return err
	})
	g.Go(func() (err error) {
		captchaErr, err = s.checkCaptcha(gctx, registrant.RecaptchaResponse)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("problem validating registrant", slog.String("username", registrant.Username), slog.Any("error", err))
		return models.NewServiceFailure("Problem validating registrant!", err)
	}

	for _, fe := range []*models.FieldError{usernameErr, emailErr, captchaErr} {
		if fe != nil {
			errs = append(errs, *fe)
		}
	}

	if len(errs) > 0 {
		s.logger.Info("registrant rejected",
			slog.String("username", registrant.Username),
			slog.Int("error_count", len(errs)))
		return &models.ValidationFailure{Message: "Invalid registrant", Errors: errs}
	}

	return nil
}

// Register validates the registrant, stores the new account and issues the first EMAIL code.
// The account starts with no authorities; completing both factors grants the base one.
func (s *RegistrantService) Register(ctx context.Context, registrant *models.Registrant) (*models.Account, error) {
	if err := s.ValidateRegistrant(ctx, registrant); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(registrant.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.NewServiceFailure("Problem saving user!", err)
	}

	account := &models.Account{
		Username:     strings.TrimSpace(registrant.Username),
		Email:        strings.TrimSpace(registrant.EmailAddress),
		PasswordHash: hash,
		FirstName:    registrant.FirstName,
		LastName:     registrant.LastName,
		PhoneNumber:  registrant.Phone,
		Authorities:  []string{},
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Lost a race with a concurrent registration of the same name or email
			return nil, &models.ValidationFailure{
				Message: "Invalid registrant",
				Errors:  []models.FieldError{{Field: "username", Code: "usernameTaken", Message: msgUsernameTaken}},
			}
		}
		s.logger.Error("problem saving user", slog.String("username", account.Username), slog.Any("error", err))
		return nil, models.NewServiceFailure("Problem saving user!", err)
	}

	s.logger.Info("account registered", slog.String("account_id", created.ID), slog.String("username", created.Username))

	if err := s.issuer.IssueEmailCode(ctx, created.Username); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *RegistrantService) checkUniqueUsername(ctx context.Context, username string) (*models.FieldError, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}

	matches, err := s.accounts.Search(ctx, models.SearchCriteria{Username: username})
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return &models.FieldError{Field: "username", Code: "usernameTaken", Message: msgUsernameTaken}, nil
	}
	return nil, nil
}

func (s *RegistrantService) checkUniqueEmail(ctx context.Context, email string) (*models.FieldError, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	matches, err := s.accounts.Search(ctx, models.SearchCriteria{EmailAddress: email})
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return &models.FieldError{Field: "emailAddress", Code: "emailTaken", Message: msgEmailTaken}, nil
	}
	return nil, nil
}

// checkCaptcha yields a generic error with no field when the score is below the pass mark
func (s *RegistrantService) checkCaptcha(ctx context.Context, proofToken string) (*models.FieldError, error) {
	if !s.config.Enabled || s.captcha == nil {
		return nil, nil
	}

	score, err := s.captcha.Score(ctx, proofToken)
	if err != nil {
		return nil, err
	}
	if score < s.config.MinScore {
		s.logger.Warn("registration captcha score below minimum", slog.Float64("score", score))
		return &models.FieldError{Message: msgLikelyBot}, nil
	}
	return nil, nil
}
