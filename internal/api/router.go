package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rensmac/taskboard/internal/api/handler"
	customMiddleware "github.com/rensmac/taskboard/internal/api/middleware"
	"github.com/rensmac/taskboard/internal/config"
	"github.com/rensmac/taskboard/internal/realtime"
	"github.com/rensmac/taskboard/internal/repository/postgres"
	"github.com/rensmac/taskboard/internal/repository/redis"
	"github.com/rensmac/taskboard/internal/security"
	"github.com/rensmac/taskboard/internal/service"
)

// NewRouter creates and configures the HTTP router, including the WebSocket
// comment endpoint.
func NewRouter(
	cfg *config.Config,
	db *postgres.DB,
	redisClient *redis.Client,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	orgRepo := postgres.NewOrganizationRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	commentRepo := postgres.NewCommentRepository(db)

	// Initialize rate limiter
	rateLimiter := redis.NewRateLimiter(redisClient, cfg.Security.RateLimit)

	// Initialize services
	authService := service.NewAuthService(userRepo, orgRepo, jwtManager)
	orgService := service.NewOrganizationService(orgRepo)
	projectService := service.NewProjectService(projectRepo, orgRepo)
	taskService := service.NewTaskService(taskRepo, projectRepo, orgRepo)
	accessService := service.NewAccessService(orgRepo, taskRepo)
	commentService := service.NewCommentService(commentRepo, taskRepo, orgRepo, dispatcher)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	orgHandler := handler.NewOrganizationHandler(orgService)
	projectHandler := handler.NewProjectHandler(projectService)
	taskHandler := handler.NewTaskHandler(taskService)
	commentHandler := handler.NewCommentHandler(commentService)

	// Realtime comment socket
	tokenVerifier := realtime.NewTokenVerifier(jwtManager, userRepo)
	socketHandler := realtime.NewHandler(registry, tokenVerifier, accessService, commentService, cfg.Realtime)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	// WebSocket endpoint. Mounted outside the timeout group: the connection
	// is long-lived by design. Both slash forms are part of the client
	// contract, and chi routes them separately.
	r.Get("/ws/tasks/{orgSlug}/{taskRef}/comments", socketHandler.CommentSocket)
	r.Get("/ws/tasks/{orgSlug}/{taskRef}/comments/", socketHandler.CommentSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", orgHandler.List)
				r.Post("/", orgHandler.Create)

				r.Route("/{orgSlug}", func(r chi.Router) {
					r.Route("/projects", func(r chi.Router) {
						r.Get("/", projectHandler.List)
						r.Post("/", projectHandler.Create)

						r.Route("/{projectSlug}/tasks", func(r chi.Router) {
							r.Get("/", taskHandler.List)
							r.Post("/", taskHandler.Create)
						})
					})

					r.Route("/tasks/{taskRef}", func(r chi.Router) {
						r.Get("/", taskHandler.Get)

						r.Route("/comments", func(r chi.Router) {
							r.Get("/", commentHandler.List)
							r.Post("/", commentHandler.Create)
						})
					})
				})
			})
		})
	})

	return r
}
