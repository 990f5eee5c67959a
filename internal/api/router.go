package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/notebook-be/internal/api/handlers"
	"github.com/isdelr/notebook-be/internal/auth"
	"github.com/isdelr/notebook-be/internal/config"
	"github.com/isdelr/notebook-be/internal/execution"
	"github.com/isdelr/notebook-be/internal/services"
	"github.com/isdelr/notebook-be/internal/store"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Store     store.Store
	Users     services.UserServiceProvider
	Sessions  services.SessionServiceProvider
	Notebooks services.NotebookServiceProvider
	Execution execution.ServiceProvider
	Stats     handlers.StatsSource
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not found"}`))
	})

	secret := []byte(cfg.SessionSecret)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, secret, cfg.SessionTokenTTL, cfg.IsProduction())
	notebookHandler := handlers.NewNotebookHandler(deps.Notebooks)
	runHandler := handlers.NewRunHandler(deps.Execution)
	healthHandler := handlers.NewHealthHandler(deps.Stats, deps.Store, cfg.PingMessage)
	requireSession := auth.SessionMiddleware(deps.Sessions, secret)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", healthHandler.Ping)
		r.Get("/health", healthHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(requireSession).Get("/me", authHandler.Me)
		})

		r.Post("/run", runHandler.Run)

		r.Route("/notebooks", func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/", notebookHandler.GetAll)
			r.Post("/", notebookHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", notebookHandler.Get)
				r.Put("/", notebookHandler.Update)
			})
		})
	})

	return r
}
