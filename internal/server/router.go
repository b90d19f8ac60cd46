package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskshare/taskshare/internal/config"
	"github.com/taskshare/taskshare/internal/handler"
	"github.com/taskshare/taskshare/internal/metrics"
	"github.com/taskshare/taskshare/internal/middleware"
	"github.com/taskshare/taskshare/internal/service"
)

// Deps is everything the router needs to serve the API.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger

	Auth      *service.AuthService
	TaskLists *service.TaskListService
	Tasks     *service.TaskService

	Limiter middleware.RateLimiter
	Metrics metrics.Snapshotter

	// Readiness checks. Leave nil to skip a dependency.
	DB    handler.HealthChecker
	Cache handler.HealthChecker
}

// NewRouter builds the HTTP routing tree.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logger := d.Logger

	authHandler := handler.NewAuthHandler(d.Auth, logger)
	listHandler := handler.NewTaskListHandler(d.TaskLists, logger)
	taskHandler := handler.NewTaskHandler(d.Tasks, logger)
	healthHandler := handler.NewHealthHandler(d.DB, d.Cache)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	authCfg := middleware.AuthConfig{
		Logger:        logger,
		Authenticator: d.Auth,
		MinDuration:   cfg.AuthMinDuration,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:      logger,
		Limiter:     d.Limiter,
		UserEnabled: cfg.RateLimitAPIEnabled && d.Limiter != nil,
		UserRPM:     cfg.RateLimitAPIRPM,
		UserBurst:   cfg.RateLimitAPIBurst,
		IPEnabled:   cfg.RateLimitAuthEnabled && d.Limiter != nil,
		IPRPS:       cfg.RateLimitAuthRPS,
		IPBurst:     cfg.RateLimitAuthBurst,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
		HSTSMaxAge:    cfg.HSTSMaxAge,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if d.Metrics != nil {
		r.Get("/metrics", handler.NewMetricsHandler(d.Metrics).Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.Get("/user", authHandler.Me)
			r.Post("/user", authHandler.UpdateProfile)
			r.Post("/logout", authHandler.Logout)
			r.Get("/all-users", authHandler.AllUsers)

			r.Route("/task-lists", func(r chi.Router) {
				r.Get("/", listHandler.List)
				r.Post("/", listHandler.Create)
				r.Get("/{id}", listHandler.Get)
				r.Put("/{id}", listHandler.Update)
				r.Delete("/{id}", listHandler.Delete)
			})

			r.Route("/task-list/share/{id}", func(r chi.Router) {
				r.Post("/", listHandler.Share)
				r.Get("/", listHandler.Grantees)
				r.Delete("/{user_id}", listHandler.Unshare)
			})
			r.Get("/shared-task-lists", listHandler.SharedWithMe)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})
			r.Put("/task/status-update/{id}", taskHandler.UpdateStatus)
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
