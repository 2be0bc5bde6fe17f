// Package handlers provides HTTP handlers for contract operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/contracts"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Handler handles contract HTTP requests
type Handler struct {
	contractService *contracts.Service
	log             zerolog.Logger
}

// NewHandler creates a new contracts handler
func NewHandler(contractService *contracts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		contractService: contractService,
		log:             log.With().Str("handler", "contracts").Logger(),
	}
}

// CreateRequest represents a request to originate a contract
type CreateRequest struct {
	BorrowerID   string  `json:"borrowerId"`
	Principal    float64 `json:"principal"`
	InterestRate float64 `json:"interestRate"`
	Term         int     `json:"term"`
	RiskTier     string  `json:"riskTier"`
	RiskScore    int     `json:"riskScore"`
}

// FundRequest represents a request to add funding
type FundRequest struct {
	Amount float64 `json:"amount"`
}

// TransitionRequest represents a request to move a contract along the
// lifecycle graph
type TransitionRequest struct {
	Target string `json:"target"`
}

// RepaymentRequest represents a request to mark a schedule entry paid
type RepaymentRequest struct {
	Seq int `json:"seq"`
}

// HandleCreate handles POST /api/contracts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.BorrowerID == "" {
		http.Error(w, "borrowerId is required", http.StatusBadRequest)
		return
	}
	if req.Principal <= 0 {
		http.Error(w, "principal must be greater than 0", http.StatusBadRequest)
		return
	}
	if req.InterestRate < 0 {
		http.Error(w, "interestRate must not be negative", http.StatusBadRequest)
		return
	}
	if req.Term <= 0 {
		http.Error(w, "term must be a positive number of months", http.StatusBadRequest)
		return
	}
	if !riskmath.Tier(req.RiskTier).Valid() {
		http.Error(w, "unknown risk tier", http.StatusBadRequest)
		return
	}
	if req.RiskScore < 0 || req.RiskScore > 100 {
		http.Error(w, "riskScore must be between 0 and 100", http.StatusBadRequest)
		return
	}

	contract, err := h.contractService.Create(contracts.CreateParams{
		BorrowerID:   req.BorrowerID,
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		Term:         req.Term,
		RiskTier:     riskmath.Tier(req.RiskTier),
		RiskScore:    req.RiskScore,
	})
	if err != nil {
		h.log.Error().Err(err).Str("borrower_id", req.BorrowerID).Msg("Failed to create contract")
		http.Error(w, "Failed to create contract", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": contract,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/contracts/{contractID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")

	contract, err := h.contractService.Get(contractID)
	if err != nil {
		h.log.Warn().Err(err).Str("contract_id", contractID).Msg("Contract not found")
		http.Error(w, "Contract not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": contract,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/contracts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := contracts.Status(r.URL.Query().Get("status"))
	if status != "" && !contracts.ValidStatus(status) {
		http.Error(w, "unknown contract status", http.StatusBadRequest)
		return
	}

	list, err := h.contractService.List(status)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list contracts")
		http.Error(w, "Failed to list contracts", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"contracts": list,
			"count":     len(list),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleFund handles POST /api/contracts/{contractID}/fund
func (h *Handler) HandleFund(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")

	var req FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be greater than 0", http.StatusBadRequest)
		return
	}

	contract, err := h.contractService.Fund(contractID, req.Amount)
	if err != nil {
		h.respondTransitionError(w, contractID, err, "Failed to fund contract")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": contract,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTransition handles POST /api/contracts/{contractID}/transition
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	target := contracts.Status(req.Target)
	if !contracts.ValidStatus(target) {
		http.Error(w, "unknown target status", http.StatusBadRequest)
		return
	}

	contract, err := h.contractService.Transition(contractID, target)
	if err != nil {
		h.respondTransitionError(w, contractID, err, "Failed to transition contract")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": contract,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRepayment handles POST /api/contracts/{contractID}/repayments
func (h *Handler) HandleRepayment(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")

	var req RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Seq <= 0 {
		http.Error(w, "seq must be a positive schedule index", http.StatusBadRequest)
		return
	}

	contract, err := h.contractService.RecordRepayment(contractID, req.Seq)
	if err != nil {
		h.log.Warn().Err(err).Str("contract_id", contractID).Int("seq", req.Seq).Msg("Failed to record repayment")
		http.Error(w, "Failed to record repayment", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": contract,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// respondTransitionError maps lifecycle errors: rejected edges are a
// conflict with the current state (409), everything else is not found.
func (h *Handler) respondTransitionError(w http.ResponseWriter, contractID string, err error, msg string) {
	var invalid *contracts.ErrInvalidTransition
	if errors.As(err, &invalid) {
		h.log.Warn().Str("contract_id", contractID).
			Str("from", string(invalid.From)).Str("to", string(invalid.To)).
			Msg("Invalid contract transition")
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]interface{}{
				"message": invalid.Error(),
				"code":    "INVALID_TRANSITION",
				"details": map[string]string{
					"from": string(invalid.From),
					"to":   string(invalid.To),
				},
			},
		})
		return
	}

	h.log.Warn().Err(err).Str("contract_id", contractID).Msg(msg)
	http.Error(w, msg, http.StatusNotFound)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
