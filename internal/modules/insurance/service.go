package insurance

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/utils"
)

// Service manages insurance vaults and claim processing.
type Service struct {
	repo         RepositoryInterface
	eventManager *events.Manager
	log          zerolog.Logger

	// Serializes claims: the reserve check and the reserve write must
	// not interleave across concurrent callers.
	mu sync.Mutex
}

// NewService creates a new insurance service.
func NewService(repo RepositoryInterface, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "insurance").Logger(),
	}
}

// CreateVault registers a vault backing a pool. Idempotent under
// seeding: an existing vault with the same id is left untouched.
func (s *Service) CreateVault(id, poolID string, initialReserve, coverageRatio float64) (*Vault, error) {
	if id == "" {
		id = utils.GenerateID("INS")
	}

	existing, err := s.repo.GetVault(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	vault := &Vault{
		ID:            id,
		PoolID:        poolID,
		TotalReserve:  initialReserve,
		CoverageRatio: coverageRatio,
		ClaimsPaid:    0,
		Status:        VaultActive,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := s.repo.CreateVault(vault); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vault_id", vault.ID).
		Str("pool_id", poolID).
		Float64("reserve", initialReserve).
		Msg("Insurance vault created")

	return vault, nil
}

// GetVault returns a vault by id.
func (s *Service) GetVault(id string) (*Vault, error) {
	vault, err := s.repo.GetVault(id)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, fmt.Errorf("no vault %s", id)
	}
	return vault, nil
}

// ListVaults returns every vault.
func (s *Service) ListVaults() ([]*Vault, error) {
	return s.repo.ListVaults()
}

// ProcessClaim pays a claim out of a vault's reserve. Claims beyond the
// reserve pay only what is left and deplete the vault; the result
// carries the covered and shortfall split.
func (s *Service) ProcessClaim(vaultID string, amount float64) (*Vault, *ClaimResult, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("claim amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vault, err := s.repo.GetVault(vaultID)
	if err != nil {
		return nil, nil, err
	}
	if vault == nil {
		return nil, nil, fmt.Errorf("no vault %s", vaultID)
	}

	covered, shortfall := ApplyClaim(vault, amount)
	result := &ClaimResult{
		ClaimID:   utils.GenerateID("CLM"),
		VaultID:   vaultID,
		Amount:    amount,
		Covered:   covered,
		Shortfall: shortfall,
		Depleted:  vault.Status == VaultDepleted,
	}

	if err := s.repo.UpdateVault(vault); err != nil {
		return nil, nil, err
	}
	if err := s.repo.RecordClaim(result, time.Now().UTC()); err != nil {
		return nil, nil, err
	}

	s.eventManager.EmitTyped(events.InsuranceClaimProcessed, "insurance", &events.InsuranceClaimProcessedData{
		VaultID:   vaultID,
		Amount:    amount,
		Covered:   covered,
		Shortfall: shortfall,
		Depleted:  result.Depleted,
	})

	s.log.Info().
		Str("vault_id", vaultID).
		Float64("amount", amount).
		Float64("covered", covered).
		Float64("shortfall", shortfall).
		Str("status", string(vault.Status)).
		Msg("Insurance claim processed")

	return vault, result, nil
}

// ListClaims returns a vault's claim history.
func (s *Service) ListClaims(vaultID string) ([]*ClaimResult, error) {
	return s.repo.ListClaims(vaultID)
}

// VaultHealth reports whether a vault clears the required coverage
// ratio and is still active.
func (s *Service) VaultHealth(vaultID string, requiredRatio float64) (*Vault, bool, error) {
	vault, err := s.repo.GetVault(vaultID)
	if err != nil {
		return nil, false, err
	}
	if vault == nil {
		return nil, false, fmt.Errorf("no vault %s", vaultID)
	}
	return vault, Healthy(vault, requiredRatio), nil
}
