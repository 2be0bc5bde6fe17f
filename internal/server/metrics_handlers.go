package server

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/modules/capital"
	"github.com/Xconmax245/Quantara/internal/modules/contracts"
	"github.com/Xconmax245/Quantara/internal/modules/insurance"
)

// MetricsHandler aggregates protocol-wide metrics from the module
// services.
type MetricsHandler struct {
	contracts *contracts.Service
	capital   *capital.Service
	insurance *insurance.Service
	log       zerolog.Logger
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(contractService *contracts.Service, capitalService *capital.Service, insuranceService *insurance.Service, log zerolog.Logger) *MetricsHandler {
	return &MetricsHandler{
		contracts: contractService,
		capital:   capitalService,
		insurance: insuranceService,
		log:       log.With().Str("handler", "metrics").Logger(),
	}
}

// MetricsResponse is the body of GET /api/metrics.
type MetricsResponse struct {
	TotalValueLocked    float64              `json:"totalValueLocked"`
	TotalValueLockedFmt string               `json:"totalValueLockedFormatted"`
	DeployedCapital     float64              `json:"deployedCapital"`
	UtilizationPercent  float64              `json:"utilizationPercent"`
	InsuranceReserves   float64              `json:"insuranceReserves"`
	ActiveContracts     int                  `json:"activeContracts"`
	TotalContracts      int                  `json:"totalContracts"`
	DefaultRatePercent  float64              `json:"defaultRatePercent"`
	ContractsByStatus   map[string]int       `json:"contractsByStatus"`
	Pools               []PoolMetricsSummary `json:"pools"`
	Timestamp           string               `json:"timestamp"`
}

// PoolMetricsSummary is one pool's slice of the protocol metrics.
type PoolMetricsSummary struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	TotalCapital       float64 `json:"totalCapital"`
	UtilizationPercent float64 `json:"utilizationPercent"`
	ActualYield        float64 `json:"actualYield"`
}

// HandleMetrics handles GET /api/metrics.
// TVL counts pool capital plus insurance reserves; the default rate is
// defaulted contracts over all contracts ever created.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	pools, err := h.capital.ListPools()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list pools for metrics")
		http.Error(w, "Failed to aggregate metrics", http.StatusInternalServerError)
		return
	}

	counts, err := h.contracts.StatusCounts()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count contracts for metrics")
		http.Error(w, "Failed to aggregate metrics", http.StatusInternalServerError)
		return
	}

	vaults, err := h.insurance.ListVaults()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list vaults for metrics")
		http.Error(w, "Failed to aggregate metrics", http.StatusInternalServerError)
		return
	}

	poolCapital := 0.0
	deployed := 0.0
	summaries := make([]PoolMetricsSummary, 0, len(pools))
	for _, pool := range pools {
		poolCapital += pool.TotalCapital
		deployed += pool.DeployedCapital
		summaries = append(summaries, PoolMetricsSummary{
			ID:                 pool.ID,
			Name:               pool.Name,
			TotalCapital:       pool.TotalCapital,
			UtilizationPercent: capital.Utilization(pool),
			ActualYield:        pool.ActualYield,
		})
	}

	reserves := 0.0
	for _, vault := range vaults {
		reserves += vault.TotalReserve
	}

	totalContracts := 0
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		totalContracts += n
		byStatus[string(status)] = n
	}

	utilization := 0.0
	if poolCapital > 0 {
		utilization = round2(deployed / poolCapital * 100)
	}

	defaultRate := 0.0
	if totalContracts > 0 {
		defaultRate = round2(float64(counts[contracts.StatusDefaulted]) / float64(totalContracts) * 100)
	}

	tvl := poolCapital + reserves

	response := MetricsResponse{
		TotalValueLocked:    tvl,
		TotalValueLockedFmt: "$" + humanize.Commaf(tvl),
		DeployedCapital:     deployed,
		UtilizationPercent:  utilization,
		InsuranceReserves:   reserves,
		ActiveContracts:     counts[contracts.StatusActive],
		TotalContracts:      totalContracts,
		DefaultRatePercent:  defaultRate,
		ContractsByStatus:   byStatus,
		Pools:               summaries,
		Timestamp:           time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
