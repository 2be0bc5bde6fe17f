// Package handlers provides HTTP handlers for risk assessment operations.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/risk"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Handler handles risk HTTP requests
type Handler struct {
	riskService *risk.Service
	log         zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(riskService *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		riskService: riskService,
		log:         log.With().Str("handler", "risk").Logger(),
	}
}

// AssessRequest represents a request to assess a user's risk.
// All four factors are required and validated against their documented
// ranges; the boundary rejects out-of-range values rather than clamping.
type AssessRequest struct {
	UserID            string   `json:"userId"`
	IncomeStability   *float64 `json:"incomeStability"`
	RepaymentHistory  *float64 `json:"repaymentHistory"`
	SectorCoefficient *float64 `json:"sectorCoefficient"`
	LiquidityBuffer   *float64 `json:"liquidityBuffer"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (req *AssessRequest) validate() []fieldError {
	var errs []fieldError
	if req.UserID == "" {
		errs = append(errs, fieldError{"userId", "userId is required"})
	}
	checkRange := func(field string, value *float64, min, max float64) {
		if value == nil {
			errs = append(errs, fieldError{field, field + " is required"})
			return
		}
		if *value < min || *value > max {
			errs = append(errs, fieldError{field, fmt.Sprintf("%s must be between %g and %g", field, min, max)})
		}
	}
	checkRange("incomeStability", req.IncomeStability, 0, 100)
	checkRange("repaymentHistory", req.RepaymentHistory, 0, 100)
	checkRange("sectorCoefficient", req.SectorCoefficient, 0.5, 1.5)
	checkRange("liquidityBuffer", req.LiquidityBuffer, 0, 100)
	return errs
}

// HandleAssess handles POST /api/risk/assess
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Validation failed",
				"code":    "VALIDATION_ERROR",
				"details": errs,
			},
		})
		return
	}

	profile, err := h.riskService.Assess(req.UserID, riskmath.Inputs{
		IncomeStability:   *req.IncomeStability,
		RepaymentHistory:  *req.RepaymentHistory,
		SectorCoefficient: *req.SectorCoefficient,
		LiquidityBuffer:   *req.LiquidityBuffer,
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to assess risk")
		http.Error(w, "Failed to assess risk", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": profile,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"tierLabel": profile.TierLabel(),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetEngine handles GET /api/risk
func (h *Handler) HandleGetEngine(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": h.riskService.EngineMetadata(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetProfile handles GET /api/risk/profiles/{userID}
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "userID is required", http.StatusBadRequest)
		return
	}

	profile, err := h.riskService.GetProfile(userID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("Risk profile not found")
		http.Error(w, "Risk profile not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": profile,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"tierLabel": profile.TierLabel(),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListProfiles handles GET /api/risk/profiles
func (h *Handler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.riskService.ListProfiles()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list risk profiles")
		http.Error(w, "Failed to list risk profiles", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"profiles": profiles,
			"count":    len(profiles),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
