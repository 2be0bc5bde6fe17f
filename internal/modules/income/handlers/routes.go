package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all income routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/income", func(r chi.Router) {
		r.Post("/sources", h.HandleAddSource)
		r.Post("/sources/{sourceID}/earnings", h.HandleAddEarning)
		r.Get("/users/{userID}/sources", h.HandleListSources)
		r.Get("/users/{userID}/analytics", h.HandleGetAnalytics)
	})
}
