package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all contract routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{contractID}", h.HandleGet)
		r.Post("/{contractID}/fund", h.HandleFund)
		r.Post("/{contractID}/transition", h.HandleTransition)
		r.Post("/{contractID}/repayments", h.HandleRepayment)
	})
}
