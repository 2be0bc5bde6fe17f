package capital

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/utils"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// RepositoryInterface defines pool and position persistence operations.
// Pools live in the protocol database, positions in the ledger.
type RepositoryInterface interface {
	CreatePool(pool *Pool) error
	GetPool(id string) (*Pool, error)
	ListPools() ([]*Pool, error)
	ApplyAllocation(poolID string, amount float64) error
	RevertAllocation(poolID string, amount float64) error
	UpdateActualYield(poolID string, actualYield float64) error
	CreatePosition(position *Position) error
	GetPosition(id string) (*Position, error)
	ListPositionsByPool(poolID string) ([]*Position, error)
}

// Repository persists pools in the protocol database and positions in
// the ledger database.
type Repository struct {
	protocol *sql.DB
	ledger   *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new capital repository.
func NewRepository(protocol, ledger *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		protocol: protocol,
		ledger:   ledger,
		log:      log.With().Str("repo", "capital").Logger(),
	}
}

// CreatePool inserts a pool. Available capital starts at total minus
// whatever is already deployed.
func (r *Repository) CreatePool(pool *Pool) error {
	tiers := make([]string, len(pool.TierFilter))
	for i, t := range pool.TierFilter {
		tiers[i] = string(t)
	}

	_, err := r.protocol.Exec(`
		INSERT INTO pools (id, name, total_capital, deployed_capital, available_capital,
			target_yield, actual_yield, tier_filter, investor_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pool.ID, pool.Name, pool.TotalCapital, pool.DeployedCapital, pool.AvailableCapital,
		pool.TargetYield, pool.ActualYield, utils.JoinCSV(tiers), pool.InvestorCount,
		pool.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	return nil
}

// GetPool returns a pool by id, or nil when unknown.
func (r *Repository) GetPool(id string) (*Pool, error) {
	row := r.protocol.QueryRow(`
		SELECT id, name, total_capital, deployed_capital, available_capital,
		       target_yield, actual_yield, tier_filter, investor_count, created_at
		FROM pools WHERE id = ?`, id)

	pool, err := scanPool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return pool, nil
}

// ListPools returns every pool, oldest first.
func (r *Repository) ListPools() ([]*Pool, error) {
	rows, err := r.protocol.Query(`
		SELECT id, name, total_capital, deployed_capital, available_capital,
		       target_yield, actual_yield, tier_filter, investor_count, created_at
		FROM pools ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []*Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

// ApplyAllocation moves amount from available to deployed and bumps the
// investor count, keeping deployed + available == total in a single
// transaction.
func (r *Repository) ApplyAllocation(poolID string, amount float64) error {
	return database.WithTransaction(r.protocol, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE pools SET
				deployed_capital = deployed_capital + ?,
				available_capital = available_capital - ?,
				investor_count = investor_count + 1
			WHERE id = ? AND available_capital >= ?`,
			amount, amount, poolID, amount)
		if err != nil {
			return fmt.Errorf("failed to apply allocation: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("allocation exceeds available capital in pool %s", poolID)
		}
		return nil
	})
}

// RevertAllocation undoes ApplyAllocation. Used when position creation
// fails after the pool was already adjusted.
func (r *Repository) RevertAllocation(poolID string, amount float64) error {
	_, err := r.protocol.Exec(`
		UPDATE pools SET
			deployed_capital = deployed_capital - ?,
			available_capital = available_capital + ?,
			investor_count = investor_count - 1
		WHERE id = ?`,
		amount, amount, poolID)
	if err != nil {
		return fmt.Errorf("failed to revert allocation: %w", err)
	}
	return nil
}

// UpdateActualYield writes a pool's recomputed actual yield.
func (r *Repository) UpdateActualYield(poolID string, actualYield float64) error {
	_, err := r.protocol.Exec(`UPDATE pools SET actual_yield = ? WHERE id = ?`, actualYield, poolID)
	if err != nil {
		return fmt.Errorf("failed to update pool yield: %w", err)
	}
	return nil
}

// CreatePosition inserts a position into the ledger.
func (r *Repository) CreatePosition(position *Position) error {
	_, err := r.ledger.Exec(`
		INSERT INTO positions (id, investor_id, pool_id, amount, entry_date, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		position.ID, position.InvestorID, position.PoolID, position.Amount,
		position.EntryDate.Unix(), string(position.Status))
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// GetPosition returns a position by id, or nil when unknown.
func (r *Repository) GetPosition(id string) (*Position, error) {
	row := r.ledger.QueryRow(`
		SELECT id, investor_id, pool_id, amount, entry_date, status
		FROM positions WHERE id = ?`, id)

	position, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return position, nil
}

// ListPositionsByPool returns a pool's positions, oldest first.
func (r *Repository) ListPositionsByPool(poolID string) ([]*Position, error) {
	rows, err := r.ledger.Query(`
		SELECT id, investor_id, pool_id, amount, entry_date, status
		FROM positions WHERE pool_id = ? ORDER BY entry_date ASC, id ASC`, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []*Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPool(row rowScanner) (*Pool, error) {
	var p Pool
	var tierFilter string
	var createdAt int64
	err := row.Scan(&p.ID, &p.Name, &p.TotalCapital, &p.DeployedCapital, &p.AvailableCapital,
		&p.TargetYield, &p.ActualYield, &tierFilter, &p.InvestorCount, &createdAt)
	if err != nil {
		return nil, err
	}
	for _, t := range utils.ParseCSV(tierFilter) {
		p.TierFilter = append(p.TierFilter, riskmath.Tier(t))
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func scanPosition(row rowScanner) (*Position, error) {
	var p Position
	var status string
	var entryDate int64
	err := row.Scan(&p.ID, &p.InvestorID, &p.PoolID, &p.Amount, &entryDate, &status)
	if err != nil {
		return nil, err
	}
	p.Status = PositionStatus(status)
	p.EntryDate = time.Unix(entryDate, 0).UTC()
	return &p, nil
}
