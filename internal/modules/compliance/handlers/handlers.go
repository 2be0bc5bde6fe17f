// Package handlers provides HTTP handlers for compliance operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/compliance"
)

// Handler handles compliance HTTP requests
type Handler struct {
	complianceService *compliance.Service
	log               zerolog.Logger
}

// NewHandler creates a new compliance handler
func NewHandler(complianceService *compliance.Service, log zerolog.Logger) *Handler {
	return &Handler{
		complianceService: complianceService,
		log:               log.With().Str("handler", "compliance").Logger(),
	}
}

// CreateFlagRequest represents a request to open a flag
type CreateFlagRequest struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ContractID  string `json:"contractId"`
	UserID      string `json:"userId"`
}

// CheckRequest represents a request to run the automated checks
type CheckRequest struct {
	Amount    float64 `json:"amount"`
	Frequency int     `json:"frequency"`
}

// HandleCreateFlag handles POST /api/compliance/flags
func (h *Handler) HandleCreateFlag(w http.ResponseWriter, r *http.Request) {
	var req CreateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !compliance.ValidType(compliance.FlagType(req.Type)) {
		http.Error(w, "unknown flag type", http.StatusBadRequest)
		return
	}
	if !compliance.ValidSeverity(compliance.Severity(req.Severity)) {
		http.Error(w, "unknown severity", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	flag, err := h.complianceService.CreateFlag(compliance.CreateFlagParams{
		Type:        compliance.FlagType(req.Type),
		Severity:    compliance.Severity(req.Severity),
		Title:       req.Title,
		Description: req.Description,
		ContractID:  req.ContractID,
		UserID:      req.UserID,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create flag")
		http.Error(w, "Failed to create flag", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": flag,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListFlags handles GET /api/compliance/flags
func (h *Handler) HandleListFlags(w http.ResponseWriter, r *http.Request) {
	status := compliance.FlagStatus(r.URL.Query().Get("status"))

	flags, err := h.complianceService.ListFlags(status)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list flags")
		http.Error(w, "Failed to list flags", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"flags": flags,
			"count": len(flags),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleResolveFlag handles POST /api/compliance/flags/{flagID}/resolve
func (h *Handler) HandleResolveFlag(w http.ResponseWriter, r *http.Request) {
	flagID := chi.URLParam(r, "flagID")

	flag, err := h.complianceService.ResolveFlag(flagID)
	if err != nil {
		h.log.Warn().Err(err).Str("flag_id", flagID).Msg("Flag not found")
		http.Error(w, "Flag not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": flag,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCheck handles POST /api/compliance/check
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount < 0 || req.Frequency < 0 {
		http.Error(w, "amount and frequency must not be negative", http.StatusBadRequest)
		return
	}

	flags, err := h.complianceService.RunAutomatedChecks(req.Amount, req.Frequency)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to run automated checks")
		http.Error(w, "Failed to run automated checks", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"flags": flags,
			"count": len(flags),
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
