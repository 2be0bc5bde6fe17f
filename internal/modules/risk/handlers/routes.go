package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/", h.HandleGetEngine)
		r.Post("/assess", h.HandleAssess)
		r.Get("/profiles", h.HandleListProfiles)
		r.Get("/profiles/{userID}", h.HandleGetProfile)
	})
}
