// Package handlers provides HTTP handlers for insurance operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/insurance"
)

// Handler handles insurance HTTP requests
type Handler struct {
	insuranceService *insurance.Service
	log              zerolog.Logger
}

// NewHandler creates a new insurance handler
func NewHandler(insuranceService *insurance.Service, log zerolog.Logger) *Handler {
	return &Handler{
		insuranceService: insuranceService,
		log:              log.With().Str("handler", "insurance").Logger(),
	}
}

// CreateVaultRequest represents a request to create a vault
type CreateVaultRequest struct {
	PoolID         string  `json:"poolId"`
	InitialReserve float64 `json:"initialReserve"`
	CoverageRatio  float64 `json:"coverageRatio"`
}

// ClaimRequest represents a request to process a claim
type ClaimRequest struct {
	Amount float64 `json:"amount"`
}

// HandleCreateVault handles POST /api/insurance/vaults
func (h *Handler) HandleCreateVault(w http.ResponseWriter, r *http.Request) {
	var req CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PoolID == "" {
		http.Error(w, "poolId is required", http.StatusBadRequest)
		return
	}
	if req.InitialReserve < 0 {
		http.Error(w, "initialReserve must not be negative", http.StatusBadRequest)
		return
	}
	if req.CoverageRatio < 0 || req.CoverageRatio > 1 {
		http.Error(w, "coverageRatio must be between 0 and 1", http.StatusBadRequest)
		return
	}

	vault, err := h.insuranceService.CreateVault("", req.PoolID, req.InitialReserve, req.CoverageRatio)
	if err != nil {
		h.log.Error().Err(err).Str("pool_id", req.PoolID).Msg("Failed to create vault")
		http.Error(w, "Failed to create vault", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": vault,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListVaults handles GET /api/insurance/vaults
func (h *Handler) HandleListVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := h.insuranceService.ListVaults()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list vaults")
		http.Error(w, "Failed to list vaults", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"vaults": vaults,
			"count":  len(vaults),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleClaim handles POST /api/insurance/vaults/{vaultID}/claims
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be greater than 0", http.StatusBadRequest)
		return
	}

	vault, result, err := h.insuranceService.ProcessClaim(vaultID, req.Amount)
	if err != nil {
		h.log.Warn().Err(err).Str("vault_id", vaultID).Msg("Failed to process claim")
		http.Error(w, "Vault not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"vault": vault,
			"claim": result,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListClaims handles GET /api/insurance/vaults/{vaultID}/claims
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")

	claims, err := h.insuranceService.ListClaims(vaultID)
	if err != nil {
		h.log.Error().Err(err).Str("vault_id", vaultID).Msg("Failed to list claims")
		http.Error(w, "Failed to list claims", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"claims": claims,
			"count":  len(claims),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleHealth handles GET /api/insurance/vaults/{vaultID}/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")

	vault, healthy, err := h.insuranceService.VaultHealth(vaultID, insurance.DefaultRequiredCoverageRatio)
	if err != nil {
		h.log.Warn().Err(err).Str("vault_id", vaultID).Msg("Vault not found")
		http.Error(w, "Vault not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"vault":         vault,
			"healthy":       healthy,
			"requiredRatio": insurance.DefaultRequiredCoverageRatio,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
