package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MikeSquared-Agency/Collector/internal/auth"
	"github.com/MikeSquared-Agency/Collector/internal/broker"
	"github.com/MikeSquared-Agency/Collector/internal/config"
	"github.com/MikeSquared-Agency/Collector/internal/ingest"
	"github.com/MikeSquared-Agency/Collector/internal/metrics"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

type Deps struct {
	Store     store.Store
	Pipeline  *ingest.Pipeline
	Broker    *broker.Broker
	Directory auth.Directory
	Registrar Registrar
	Tokens    *auth.TokenService
	Metrics   *metrics.Metrics
	Config    *config.Config
	Logger    *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(d.Logger))
	r.Use(MetricsMiddleware(d.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(RateLimitMiddleware(d.Config.Server.RateLimitPerMinute))

	authH := NewAuthHandler(d.Directory, d.Registrar, d.Tokens, d.Store, d.Logger)
	cases := NewCasesHandler(d.Store, d.Pipeline, d.Broker, d.Config.Ingest.MaxUploadBytes, d.Logger)
	reports := NewReportsHandler(d.Store, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", Health)
		r.Post("/auth/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.Tokens))

			r.Get("/auth/verify", authH.Verify)

			r.Get("/cases/sample.csv", cases.Sample)
			r.Get("/cases", cases.List)
			r.Get("/cases/{id}", cases.Get)
			r.Put("/cases/{id}/status", cases.UpdateStatus)
			r.Get("/cases/{id}/explain", cases.Explain)
			r.Get("/scoring/preview", Preview)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/auth/register", authH.Register)
				r.Get("/auth/users", authH.ListUsers)
				r.Delete("/auth/users/{id}", authH.DeleteUser)
				r.Post("/cases/upload", cases.Upload)
				r.Post("/cases/reallocate", cases.Reallocate)
				r.Get("/reports/portfolio", reports.Portfolio)
				r.Get("/stats", reports.Stats)
			})
		})
	})

	return r
}

func NewMetricsRouter(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())
	return r
}
