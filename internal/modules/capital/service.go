package capital

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/utils"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Service manages capital pools and investor allocations.
type Service struct {
	repo         RepositoryInterface
	eventManager *events.Manager
	log          zerolog.Logger

	// Serializes allocations: the capacity check and the pool update
	// must not interleave across concurrent callers.
	mu sync.Mutex
}

// NewService creates a new capital service.
func NewService(repo RepositoryInterface, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "capital").Logger(),
	}
}

// CreatePool registers a pool. Idempotent under seeding: an existing
// pool with the same id is left untouched.
func (s *Service) CreatePool(id, name string, totalCapital, targetYield float64, tierFilter []riskmath.Tier) (*Pool, error) {
	if id == "" {
		id = utils.GenerateID("POOL")
	}

	existing, err := s.repo.GetPool(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	pool := &Pool{
		ID:               id,
		Name:             name,
		TotalCapital:     totalCapital,
		DeployedCapital:  0,
		AvailableCapital: totalCapital,
		TargetYield:      targetYield,
		ActualYield:      0,
		TierFilter:       tierFilter,
		InvestorCount:    0,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := s.repo.CreatePool(pool); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("pool_id", pool.ID).
		Float64("total_capital", totalCapital).
		Msg("Capital pool created")

	return pool, nil
}

// GetPool returns a pool by id.
func (s *Service) GetPool(id string) (*Pool, error) {
	pool, err := s.repo.GetPool(id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("no pool %s", id)
	}
	return pool, nil
}

// ListPools returns every pool.
func (s *Service) ListPools() ([]*Pool, error) {
	return s.repo.ListPools()
}

// Allocate moves capital from a pool to a new active position. The
// whole operation is serialized: the capacity check, the pool counters
// and the position row move together or not at all.
func (s *Service) Allocate(poolID, investorID string, amount float64) (*Pool, *Position, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("allocation amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.repo.GetPool(poolID)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		return nil, nil, fmt.Errorf("no pool %s", poolID)
	}
	if amount > pool.AvailableCapital {
		return nil, nil, &ErrInsufficientCapacity{
			PoolID:    poolID,
			Requested: amount,
			Available: pool.AvailableCapital,
		}
	}

	if err := s.repo.ApplyAllocation(poolID, amount); err != nil {
		return nil, nil, err
	}

	position := &Position{
		ID:         utils.GenerateID("POS"),
		InvestorID: investorID,
		PoolID:     poolID,
		Amount:     amount,
		EntryDate:  time.Now().UTC().Truncate(time.Second),
		Status:     PositionActive,
	}
	if err := s.repo.CreatePosition(position); err != nil {
		// The pool was already adjusted; put the capital back before
		// reporting failure so no partial allocation survives.
		if revertErr := s.repo.RevertAllocation(poolID, amount); revertErr != nil {
			s.log.Error().Err(revertErr).Str("pool_id", poolID).Msg("Failed to revert allocation")
		}
		return nil, nil, err
	}

	pool.DeployedCapital += amount
	pool.AvailableCapital -= amount
	pool.InvestorCount++

	s.eventManager.EmitTyped(events.CapitalAllocated, "capital", &events.CapitalAllocatedData{
		PoolID:     poolID,
		PositionID: position.ID,
		InvestorID: investorID,
		Amount:     amount,
	})

	s.log.Info().
		Str("pool_id", poolID).
		Str("position_id", position.ID).
		Float64("amount", amount).
		Float64("available", pool.AvailableCapital).
		Msg("Capital allocated")

	return pool, position, nil
}

// PositionValue derives a position's current value using the owning
// pool's target yield as the accrual rate.
func (s *Service) PositionValue(positionID string, now time.Time) (*PositionValue, error) {
	position, err := s.repo.GetPosition(positionID)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, fmt.Errorf("no position %s", positionID)
	}

	pool, err := s.repo.GetPool(position.PoolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("no pool %s", position.PoolID)
	}

	value := AccrueYield(position, pool.TargetYield, now)
	return &value, nil
}

// SnapshotYields recomputes each pool's actual yield from the accrued
// yield of its active positions relative to deployed capital, and emits
// a PoolRebalanced event per pool. Run by the scheduler.
func (s *Service) SnapshotYields(now time.Time) error {
	pools, err := s.repo.ListPools()
	if err != nil {
		return err
	}

	for _, pool := range pools {
		actual := 0.0
		if pool.DeployedCapital > 0 {
			positions, err := s.repo.ListPositionsByPool(pool.ID)
			if err != nil {
				return err
			}
			earned := 0.0
			for _, position := range positions {
				if position.Status != PositionActive {
					continue
				}
				earned += AccrueYield(position, pool.TargetYield, now).Yield
			}
			actual = math.Round(earned/pool.DeployedCapital*10000) / 100
		}

		if err := s.repo.UpdateActualYield(pool.ID, actual); err != nil {
			return err
		}

		s.eventManager.EmitTyped(events.PoolRebalanced, "capital", &events.PoolRebalancedData{
			PoolID:      pool.ID,
			ActualYield: actual,
			Utilization: Utilization(pool),
		})
	}
	return nil
}
