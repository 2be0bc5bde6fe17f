package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all compliance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Post("/flags", h.HandleCreateFlag)
		r.Get("/flags", h.HandleListFlags)
		r.Post("/flags/{flagID}/resolve", h.HandleResolveFlag)
		r.Post("/check", h.HandleCheck)
	})
}
