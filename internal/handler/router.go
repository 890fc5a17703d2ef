package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/autorefund/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса автовозвратов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/health", h.Health)

	r.Route("/api/events", func(r chi.Router) {
		r.Use(h.signature.Middleware)

		r.Post("/feedback", h.FeedbackEvent)
		r.Post("/order", h.OrderEvent)
	})

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.AdminAuth(h.adminToken))

		r.Get("/api/settings", h.GetSettings)
		r.Patch("/api/settings", h.UpdateSettings)

		r.Get("/api/blacklist", h.GetBlacklist)
		r.Put("/api/blacklist/{username}", h.AddToBlacklist)
		r.Delete("/api/blacklist/{username}", h.RemoveFromBlacklist)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
