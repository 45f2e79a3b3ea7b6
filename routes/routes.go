package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/Dosada05/league-system/handlers"
	"github.com/Dosada05/league-system/metrics"
	"github.com/Dosada05/league-system/middleware"
)

// Deps собирает всё, что нужно маршрутизатору.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Sessions    *middleware.SessionManager
	AuthLimiter *middleware.IPRateLimiter
	CORSOrigins []string

	Auth       *handlers.AuthHandler
	Dashboard  *handlers.DashboardHandler
	Tournament *handlers.TournamentHandler
}

func SetupRoutes(router chi.Router, d Deps) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	router.Use(chiMiddleware.Recoverer)
	router.Use(d.Sessions.Authenticate)

	router.Get("/healthz", d.Dashboard.Health)
	router.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// Публичные страницы
	router.Get("/", d.Dashboard.Home)
	router.Get("/register", d.Auth.RegisterPage)
	router.Get("/login", d.Auth.LoginPage)
	router.Post("/logout", d.Auth.Logout)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(d.AuthLimiter))
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)
	})

	// Страницы, требующие входа
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)

		r.Get("/dashboard", d.Dashboard.Dashboard)
		r.Route("/tournament", func(r chi.Router) {
			r.Post("/create", d.Tournament.Create)
			r.Get("/{id}", d.Tournament.View)
			r.Post("/join/{id}", d.Tournament.Join)
			r.Post("/generate/{id}", d.Tournament.Generate)
			r.Post("/score/{id}", d.Tournament.Score)
			r.Post("/logo/{id}", d.Tournament.UploadLogo)
		})
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.Get("/openapi.json", handlers.OpenAPI)
		r.Get("/docs/*", handlers.SwaggerUI())
		r.With(middleware.RateLimit(d.AuthLimiter)).Post("/login", d.Auth.APILogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPISession)
			r.Get("/tournaments/{id}", d.Tournament.APIGet)
			r.Get("/tournaments/{id}/standings", d.Tournament.APIStandings)
		})
	})
}
