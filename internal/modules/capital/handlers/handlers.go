// Package handlers provides HTTP handlers for capital operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/capital"
)

// Handler handles capital HTTP requests
type Handler struct {
	capitalService *capital.Service
	log            zerolog.Logger
}

// NewHandler creates a new capital handler
func NewHandler(capitalService *capital.Service, log zerolog.Logger) *Handler {
	return &Handler{
		capitalService: capitalService,
		log:            log.With().Str("handler", "capital").Logger(),
	}
}

// AllocateRequest represents a request to allocate capital to a pool
type AllocateRequest struct {
	InvestorID string  `json:"investorId"`
	Amount     float64 `json:"amount"`
}

// HandleListPools handles GET /api/capital/pools
func (h *Handler) HandleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.capitalService.ListPools()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list pools")
		http.Error(w, "Failed to list pools", http.StatusInternalServerError)
		return
	}

	summaries := make([]map[string]interface{}, 0, len(pools))
	for _, pool := range pools {
		summaries = append(summaries, map[string]interface{}{
			"pool":        pool,
			"utilization": capital.Utilization(pool),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"pools": summaries,
			"count": len(pools),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPool handles GET /api/capital/pools/{poolID}
func (h *Handler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "poolID")

	pool, err := h.capitalService.GetPool(poolID)
	if err != nil {
		h.log.Warn().Err(err).Str("pool_id", poolID).Msg("Pool not found")
		http.Error(w, "Pool not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"pool":        pool,
			"utilization": capital.Utilization(pool),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleAllocate handles POST /api/capital/pools/{poolID}/allocate
func (h *Handler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "poolID")

	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InvestorID == "" {
		http.Error(w, "investorId is required", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be greater than 0", http.StatusBadRequest)
		return
	}

	pool, position, err := h.capitalService.Allocate(poolID, req.InvestorID, req.Amount)
	if err != nil {
		var capacity *capital.ErrInsufficientCapacity
		if errors.As(err, &capacity) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error": map[string]interface{}{
					"message": capacity.Error(),
					"code":    "INSUFFICIENT_CAPACITY",
					"details": map[string]interface{}{
						"requested": capacity.Requested,
						"available": capacity.Available,
					},
				},
			})
			return
		}
		h.log.Warn().Err(err).Str("pool_id", poolID).Msg("Failed to allocate")
		http.Error(w, "Failed to allocate", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"pool":     pool,
			"position": position,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePositionValue handles GET /api/capital/positions/{positionID}/value
func (h *Handler) HandlePositionValue(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")

	value, err := h.capitalService.PositionValue(positionID, time.Now().UTC())
	if err != nil {
		h.log.Warn().Err(err).Str("position_id", positionID).Msg("Position not found")
		http.Error(w, "Position not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": value,
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
