package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/background"
	"github.com/BradenHooton/ecosystem-user/internal/config"
	"github.com/BradenHooton/ecosystem-user/internal/database"
	"github.com/BradenHooton/ecosystem-user/internal/handlers"
	middlewareCustom "github.com/BradenHooton/ecosystem-user/internal/middleware"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/BradenHooton/ecosystem-user/internal/repositories"
	"github.com/BradenHooton/ecosystem-user/internal/routes"
	"github.com/BradenHooton/ecosystem-user/internal/services"
	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
	pkglogger "github.com/BradenHooton/ecosystem-user/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Database (runs migrations)
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repositories.NewAccountRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)
	ipLogRepo := repositories.NewIPLogRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	emailSender, err := newEmailSender(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	smsProvider := services.NewVonageVerifyClient(cfg.SMS.APIKey, cfg.SMS.APISecret, cfg.SMS.BaseURL, cfg.SMS.Timeout, logger)

	var captcha services.CaptchaScorer
	if cfg.Recaptcha.Enabled {
		captcha = services.NewRecaptchaEnterpriseScorer(
			cfg.Recaptcha.ProjectID,
			cfg.Recaptcha.SiteKey,
			cfg.Recaptcha.APIKey,
			cfg.Recaptcha.BaseURL,
			cfg.Recaptcha.Timeout,
			logger,
		)
	}

	// Verification
	codeIssuer := services.NewCodeIssuer(
		accountRepo,
		verificationRepo,
		auth.NewCodeGenerator(cfg.Verification.BrandName),
		emailSender,
		smsProvider,
		cfg.Verification.BrandName,
		logger,
	)
	verificationService := services.NewVerificationService(
		verificationRepo,
		accountRepo,
		smsProvider,
		codeIssuer,
		services.VerificationConfig{
			CodeWindow:        cfg.Verification.CodeWindow,
			MaxFailedAttempts: cfg.Verification.MaxFailedAttempts,
		},
		logger,
	)

	// Login
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: cfg.Auth.TimingDelayOnSuccess,
	})
	authenticator := services.NewAuthenticator(accountRepo, models.LockoutPolicy{
		MaxFailedLogins: cfg.Auth.MaxFailedLogins,
		LockoutDuration: cfg.Auth.LockoutDuration,
	}, logger)
	ipAudit := services.NewIPAuditService(ipLogRepo, services.IPThrottleConfig{
		MaxFailures: cfg.Auth.MaxIPFailures,
		Window:      cfg.Auth.IPFailureWindow,
	}, logger)
	loginGateway := services.NewLoginGateway(
		authenticator,
		tokenManager,
		services.NewLoginTracker(accountRepo, logger),
		ipAudit,
		timingDelay,
		auditLogger,
		logger,
	)

	registrantService := services.NewRegistrantService(accountRepo, captcha, codeIssuer, services.CaptchaConfig{
		Enabled:  cfg.Recaptcha.Enabled,
		MinScore: cfg.Recaptcha.MinScore,
	}, logger)
	userService := services.NewUserService(accountRepo, revokeRepo, logger)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(loginGateway, userService, ipConfig, auditLogger, logger),
		Registration: handlers.NewRegistrationHandler(registrantService, ipConfig, auditLogger, logger),
		Verification: handlers.NewVerificationHandler(verificationService, ipConfig, auditLogger, logger),
		Users:        handlers.NewUserHandler(userService, ipConfig, auditLogger, logger),
		Health:       db,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	rateLimit := middlewareCustom.DefaultAuthRateLimit(ipConfig)
	if cfg.Auth.RequestsPerMinute > 0 {
		rateLimit.RequestsPerMinute = cfg.Auth.RequestsPerMinute
	}
	routes.RegisterRoutes(router, h, tokenManager, revokeRepo, rateLimit)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupManager := background.NewCleanupManager(revokeRepo, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func newEmailSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.EmailSender, error) {
	if cfg.Email.Provider == "smtp" {
		return services.NewSMTPEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromAddress,
			logger,
		), nil
	}
	return services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
