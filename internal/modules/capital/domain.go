// Package capital implements capital pool and allocation management.
package capital

import (
	"fmt"
	"math"
	"time"

	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Pool is a tranche of investable capital. The invariant
// deployed + available == total holds after every allocation.
type Pool struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	TotalCapital     float64         `json:"totalCapital"`
	DeployedCapital  float64         `json:"deployedCapital"`
	AvailableCapital float64         `json:"availableCapital"`
	TargetYield      float64         `json:"targetYield"`
	ActualYield      float64         `json:"actualYield"`
	TierFilter       []riskmath.Tier `json:"riskTierFilter"`
	InvestorCount    int             `json:"investorCount"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// PositionStatus is the state of an investment position.
type PositionStatus string

// Position states.
const (
	PositionActive    PositionStatus = "active"
	PositionMatured   PositionStatus = "matured"
	PositionWithdrawn PositionStatus = "withdrawn"
)

// Position is one investor's stake in a pool. Amount and entry date are
// fixed at allocation; value and yield are always derived, never stored.
type Position struct {
	ID         string         `json:"id"`
	InvestorID string         `json:"investorId"`
	PoolID     string         `json:"poolId"`
	Amount     float64        `json:"amount"`
	EntryDate  time.Time      `json:"entryDate"`
	Status     PositionStatus `json:"status"`
}

// PositionValue is a derived snapshot of a position at a point in time.
type PositionValue struct {
	PositionID   string  `json:"positionId"`
	CurrentValue float64 `json:"currentValue"`
	Yield        float64 `json:"yield"`
	DaysElapsed  float64 `json:"daysElapsed"`
}

// ErrInsufficientCapacity reports an allocation larger than the pool's
// available capital.
type ErrInsufficientCapacity struct {
	PoolID    string
	Requested float64
	Available float64
}

func (e *ErrInsufficientCapacity) Error() string {
	return fmt.Sprintf("insufficient pool capacity: requested %.2f, available %.2f in pool %s",
		e.Requested, e.Available, e.PoolID)
}

// AccrueYield derives a position's value from simple daily accrual:
// amount x (annualRate/100/365) x days elapsed. Pure in (position,
// rate, now), so equal inputs always produce equal snapshots.
func AccrueYield(position *Position, annualRate float64, now time.Time) PositionValue {
	days := now.Sub(position.EntryDate).Hours() / 24
	earned := position.Amount * (annualRate / 100 / 365) * days

	return PositionValue{
		PositionID:   position.ID,
		CurrentValue: position.Amount + earned,
		Yield:        math.Round(earned*100) / 100,
		DaysElapsed:  days,
	}
}

// Utilization is deployed over total as a percentage, 2 decimals.
// An empty pool has zero utilization.
func Utilization(pool *Pool) float64 {
	if pool.TotalCapital == 0 {
		return 0
	}
	return math.Round(pool.DeployedCapital/pool.TotalCapital*10000) / 100
}
