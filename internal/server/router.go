package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bidcraft/bidcraft/internal/api"
	"github.com/bidcraft/bidcraft/internal/api/handlers"
	"github.com/bidcraft/bidcraft/internal/api/middleware"
)

type RouterConfig struct {
	ContractsHandler *handlers.ContractsHandler
	SessionHandler   *handlers.SessionHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			api.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/suggested", cfg.ContractsHandler.Suggested)
			r.Post("/process", cfg.ContractsHandler.Process)
		})

		r.Post("/chat", cfg.SessionHandler.Chat)
		r.Post("/highlight", cfg.SessionHandler.Highlight)

		r.Route("/sessions", func(r chi.Router) {
			r.Delete("/{id}", cfg.SessionHandler.Delete)
			r.Get("/{id}/history", cfg.SessionHandler.History)
			r.Get("/{id}/snapshot", cfg.SessionHandler.Snapshot)
		})
	})

	return r
}
