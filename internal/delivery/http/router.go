package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"schoolevents/internal/delivery/http/controllers"
	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/delivery/http/middleware"
	"schoolevents/internal/domain"
)

// RouterDeps are the collaborators the router wires into handlers.
type RouterDeps struct {
	Logger         *slog.Logger
	Registrations  *controllers.RegistrationController
	Verifier       domain.TokenVerifier
	AllowedOrigins []string
	// Ping reports storage health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter initializes the HTTP router with all application routes and wraps it in
// logging and CORS middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(deps.Verifier, deps.Logger)

	// API Routes
	mux.HandleFunc("POST /registrations", auth(deps.Registrations.Register))
	mux.HandleFunc("DELETE /registrations/{registrationID}", auth(deps.Registrations.Cancel))
	mux.HandleFunc("GET /registrations/my", auth(deps.Registrations.ListMyRegistrations))

	mux.HandleFunc("GET /health", health(deps.Ping))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return middleware.LoggingMiddleware(deps.Logger, middleware.CORS(deps.AllowedOrigins, mux))
}

// health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status: ok"
// @Failure 503 {object} helpers.APIResponse "error.code: transient_storage"
// @Router /health [get]
func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeTransientStorage, "storage unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
