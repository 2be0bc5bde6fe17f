package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all capital routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/capital", func(r chi.Router) {
		r.Get("/pools", h.HandleListPools)
		r.Get("/pools/{poolID}", h.HandleGetPool)
		r.Post("/pools/{poolID}/allocate", h.HandleAllocate)
		r.Get("/positions/{positionID}/value", h.HandlePositionValue)
	})
}
