package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(verifyHandler *VerifyHandler, adminHandler *AdminHandler, jobsHandler *JobsHandler, healthHandler *HealthHandler, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/verify", verifyHandler.Verify)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminAuth(adminToken))

		r.Post("/sync", adminHandler.Sync)
		r.Post("/credentials/issue", adminHandler.IssueCredentials)
		r.Post("/dispatch", adminHandler.Dispatch)
		r.Post("/checkins/reset", adminHandler.ResetCheckIns)
		r.Get("/export", adminHandler.Export)
		r.Get("/graduates", adminHandler.ListGraduates)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobsHandler.Start)
			r.Get("/", jobsHandler.List)
			r.Get("/{id}", jobsHandler.Get)
			r.Delete("/{id}", jobsHandler.Cancel)
		})
		r.Get("/auto-sync", jobsHandler.AutoSyncStatus)
		r.Post("/auto-sync", jobsHandler.SetAutoSync)
	})

	return r
}
