package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all insurance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/insurance", func(r chi.Router) {
		r.Post("/vaults", h.HandleCreateVault)
		r.Get("/vaults", h.HandleListVaults)
		r.Post("/vaults/{vaultID}/claims", h.HandleClaim)
		r.Get("/vaults/{vaultID}/claims", h.HandleListClaims)
		r.Get("/vaults/{vaultID}/health", h.HandleHealth)
	})
}
