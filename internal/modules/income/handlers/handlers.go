// Package handlers provides HTTP handlers for income operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/income"
)

// Handler handles income HTTP requests
type Handler struct {
	incomeService *income.Service
	log           zerolog.Logger
}

// NewHandler creates a new income handler
func NewHandler(incomeService *income.Service, log zerolog.Logger) *Handler {
	return &Handler{
		incomeService: incomeService,
		log:           log.With().Str("handler", "income").Logger(),
	}
}

// AddSourceRequest represents a request to register an income source
type AddSourceRequest struct {
	UserID    string  `json:"userId"`
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
}

// AddEarningRequest represents a request to append an earning
type AddEarningRequest struct {
	Month    string  `json:"month"`
	Amount   float64 `json:"amount"`
	Verified bool    `json:"verified"`
}

// HandleAddSource handles POST /api/income/sources
func (h *Handler) HandleAddSource(w http.ResponseWriter, r *http.Request) {
	var req AddSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Name == "" {
		http.Error(w, "userId and name are required", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be greater than 0", http.StatusBadRequest)
		return
	}
	if !income.ValidType(income.SourceType(req.Type)) {
		http.Error(w, "unknown income source type", http.StatusBadRequest)
		return
	}
	if !income.ValidFrequency(income.Frequency(req.Frequency)) {
		http.Error(w, "unknown income frequency", http.StatusBadRequest)
		return
	}

	source, err := h.incomeService.AddSource(req.UserID, income.SourceType(req.Type), req.Name, req.Amount, income.Frequency(req.Frequency))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to add income source")
		http.Error(w, "Failed to add income source", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": source,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleAddEarning handles POST /api/income/sources/{sourceID}/earnings
func (h *Handler) HandleAddEarning(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")

	var req AddEarningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Month == "" {
		http.Error(w, "month is required", http.StatusBadRequest)
		return
	}

	source, err := h.incomeService.AddEarning(sourceID, req.Month, req.Amount, req.Verified)
	if err != nil {
		h.log.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to add earning")
		http.Error(w, "Income source not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": source,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListSources handles GET /api/income/users/{userID}/sources
func (h *Handler) HandleListSources(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sources, err := h.incomeService.ListSources(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list income sources")
		http.Error(w, "Failed to list income sources", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"sources": sources,
			"count":   len(sources),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetAnalytics handles GET /api/income/users/{userID}/analytics
func (h *Handler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	analytics, err := h.incomeService.ComputeAnalytics(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute income analytics")
		http.Error(w, "Failed to compute income analytics", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": analytics,
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
