package handlers

import (
	"context"
	"net/http"

	pkghttp "github.com/BradenHooton/ecosystem-user/pkg/http"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Health handles GET /health
func Health(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "database unreachable")
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
