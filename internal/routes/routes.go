package routes

import (
	"github.com/BradenHooton/ecosystem-user/internal/auth"
	"github.com/BradenHooton/ecosystem-user/internal/handlers"
	"github.com/BradenHooton/ecosystem-user/internal/middleware"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth         *handlers.AuthHandler
	Registration *handlers.RegistrationHandler
	Verification *handlers.VerificationHandler
	Users        *handlers.UserHandler
	Health       handlers.HealthChecker
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokens auth.TokenValidator,
	revocations auth.TokenRevocationChecker,
	rateLimit middleware.RateLimitConfig,
) {
	byIP := middleware.RateLimitByIP(rateLimit)

	router.Get("/health", handlers.Health(h.Health))

	// Registration and login, no session
	router.With(byIP).Post("/registrants", h.Registration.Register)
	router.With(byIP).Get("/emailVerificationStatus", h.Verification.EmailVerificationStatus)
	router.With(byIP).Get("/smsVerificationStatus", h.Verification.SmsVerificationStatus)
	router.With(byIP).Post("/authenticate", h.Auth.Login)

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddlewareWithRevocation(tokens, revocations, auth.RevocationConfig{FailClosed: true}))
		r.Use(auth.RequireAuthority(models.AllowedAuthorities...))
		r.Use(middleware.RateLimitByAccount(rateLimit))

		r.Get("/me", h.Users.Me)
		r.Get("/users/search", h.Users.Search)
		r.Put("/users/{id}", h.Users.UpdateUser)
		r.Delete("/users/{id}", h.Users.DeleteUser)
		r.Delete("/session", h.Auth.Logout)
	})
}
