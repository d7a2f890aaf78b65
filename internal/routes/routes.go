package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chorely/chorely/internal/auth"
	"github.com/chorely/chorely/internal/handlers"
	"github.com/chorely/chorely/internal/metrics"
	"github.com/chorely/chorely/internal/middleware"
	pkghttp "github.com/chorely/chorely/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Options configures the global middleware stack
type Options struct {
	Env                string
	AllowedOrigins     []string
	IPConfig           *pkghttp.IPConfig
	AuthRouteRateLimit int
	RequestTimeout     time.Duration
}

// Handlers groups everything the router dispatches to
type Handlers struct {
	Auth   *handlers.AuthHandler
	Tasks  *handlers.TaskHandler
	Health *handlers.HealthHandler
}

// NewRouter builds the application router. userRepo lets the bearer
// middleware reject tokens of deleted users; m may be nil.
func NewRouter(
	opts Options,
	h Handlers,
	tokenManager *auth.TokenManager,
	userRepo auth.UserRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) chi.Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: opts.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.AllowedOrigins)))
	router.Use(middleware.SecureLogger(logger, m))
	router.Use(middleware.Recover(logger))
	router.Use(chimiddleware.Timeout(opts.RequestTimeout))

	RegisterRoutes(router, opts, h, tokenManager, userRepo, logger)

	if m != nil {
		router.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	opts Options,
	h Handlers,
	tokenManager *auth.TokenManager,
	userRepo auth.UserRepository,
	logger *slog.Logger,
) {
	throttle := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestsPerMinute: opts.AuthRouteRateLimit,
		IPConfig:          opts.IPConfig,
	})

	router.Get("/", h.Health.Welcome)
	router.Get("/health", h.Health.Health)

	// Public auth routes. Login is gated by the session service's own
	// limiter so that a 429 carries the login window's Retry-After.
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Auth.Login)
		r.With(throttle).Post("/register", h.Auth.Register)
		r.With(throttle).Post("/refresh-token", h.Auth.RefreshToken)
		r.With(throttle).Post("/logout", h.Auth.Logout)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager, userRepo, logger))
		h.Tasks.RegisterRoutes(r)
	})
}
