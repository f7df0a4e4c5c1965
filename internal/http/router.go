package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"taskdeck/internal/analytics"
	"taskdeck/internal/categories"
	"taskdeck/internal/config"
	"taskdeck/internal/exporter"
	"taskdeck/internal/identity"
	"taskdeck/internal/importer"
	"taskdeck/internal/profile"
	"taskdeck/internal/tasks"
)

// Services bundles the application services the router wires up.
type Services struct {
	Identity  *identity.Service
	Profile   *profile.Service
	Tasks     *tasks.Service
	Category  *categories.Service
	Analytics *analytics.Service
	Google    *identity.GoogleAuthenticator
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, svcs Services, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	metrics := NewMetrics()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authHandler := NewAuthHandler(svcs.Identity, svcs.Profile, logger)
	profileHandler := NewProfileHandler(svcs.Profile, logger)
	taskHandler := NewTaskHandler(svcs.Tasks, exporter.NewCSVExporter(), importer.NewCSVImporter(svcs.Tasks), logger)
	categoryHandler := NewCategoryHandler(svcs.Category, svcs.Tasks, logger)
	analyticsHandler := NewAnalyticsHandler(svcs.Analytics, logger)

	requireAuth := newAuthMiddleware(svcs.Identity, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints are the brute-force target; throttle them.
			r.Use(newRateLimitMiddleware(rate.Every(time.Second), 10))

			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/token", authHandler.Token)
			r.Post("/signout", authHandler.SignOut)

			if svcs.Google != nil {
				oauthHandler := NewOAuthHandler(svcs.Google, svcs.Identity, svcs.Profile, cfg.FrontendURL, cfg.Environment, logger)
				r.Get("/google", oauthHandler.InitiateGoogle)
				r.Get("/google/callback", oauthHandler.CallbackGoogle)
			}

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/user", authHandler.Me)
				r.Patch("/user", authHandler.UpdateUser)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Put("/", profileHandler.Update)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/today", taskHandler.Today)
				r.Get("/overdue", taskHandler.Overdue)
				r.Post("/reorder", taskHandler.Reorder)
				r.Get("/export", taskHandler.Export)
				r.Post("/import", taskHandler.Import)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.Get)
					r.Patch("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
					r.Patch("/toggle", taskHandler.Toggle)
					r.Post("/subtasks", taskHandler.AddSubtask)
				})
			})

			r.Route("/subtasks/{id}", func(r chi.Router) {
				r.Patch("/toggle", taskHandler.ToggleSubtask)
				r.Delete("/", taskHandler.DeleteSubtask)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categoryHandler.List)
				r.Post("/", categoryHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", categoryHandler.Update)
					r.Delete("/", categoryHandler.Delete)
				})
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/statistics", analyticsHandler.Statistics)
				r.Get("/productivity", analyticsHandler.Productivity)
				r.Get("/categories", analyticsHandler.Categories)
				r.Get("/priorities", analyticsHandler.Priorities)
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
