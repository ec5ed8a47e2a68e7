package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/lulu/internal/api/handlers"
	"github.com/felixgeelhaar/lulu/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux       *http.ServeMux
	app       *App
	auth      *middleware.Authenticator
	tutor     *handlers.TutorHandler
	stats     *handlers.StatsHandler
	rateLimit *middleware.RateLimit
}

// NewRouter creates a new API router with all routes configured. The
// returned close function releases the per-client rate limiter.
func NewRouter(app *App) (http.Handler, func() error) {
	r := &Router{
		mux:   http.NewServeMux(),
		app:   app,
		auth:  middleware.NewAuthenticator(app.Config.JWTSecret, app.Logger),
		tutor: handlers.NewTutorHandler(app.Tutor),
		stats: handlers.NewStatsHandler(app.Usage, app.Limiter, app.Cache),
	}

	r.registerRoutes()
	handler := r.buildMiddlewareChain(r.mux)

	return handler, func() error {
		if r.rateLimit != nil {
			return r.rateLimit.Close()
		}
		return nil
	}
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)
	if r.app.Metrics != nil {
		r.mux.Handle("GET /metrics", r.app.Metrics.Handler())
	}

	r.mux.Handle("POST /api/v1/gemini/validate-code", r.requireAuth(r.tutor.ValidateCode))
	r.mux.Handle("POST /api/v1/gemini/generate-questions", r.requireAuth(r.tutor.GenerateQuestions))
	r.mux.Handle("POST /api/v1/gemini/chat", r.requireAuth(r.tutor.Chat))
	r.mux.Handle("POST /api/v1/gemini/explicar-concepto", r.requireAuth(r.tutor.ExplainConcept))

	r.mux.Handle("GET /api/v1/gemini/stats",
		r.auth.Require(middleware.RequireRole(middleware.RoleAdmin)(http.HandlerFunc(r.stats.Get))))
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(r.app.Logger)(handler)

	// Skip rate limiting in debug mode for easier development
	if !r.app.Config.Debug {
		r.rateLimit = middleware.NewRateLimit(r.app.Config.HTTPRateLimitPerMinute, r.app.Logger)
		handler = r.rateLimit.Middleware(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(handler)

	return handler
}

// requireAuth wraps a handler with bearer token authentication
func (r *Router) requireAuth(next http.HandlerFunc) http.Handler {
	return r.auth.Require(next)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	if err := r.app.Store.Ping(req.Context()); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"request_id", middleware.GetRequestID(req.Context()),
		)
		handlers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": map[string]string{"database": "unhealthy"},
		})
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"database": "healthy"},
	})
}
