package insurance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RepositoryInterface defines vault and claim persistence operations.
// Vaults live in the protocol database, claim records in the ledger.
type RepositoryInterface interface {
	CreateVault(vault *Vault) error
	GetVault(id string) (*Vault, error)
	ListVaults() ([]*Vault, error)
	UpdateVault(vault *Vault) error
	RecordClaim(result *ClaimResult, createdAt time.Time) error
	ListClaims(vaultID string) ([]*ClaimResult, error)
}

// Repository persists vaults in the protocol database and claims in
// the ledger database.
type Repository struct {
	protocol *sql.DB
	ledger   *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new insurance repository.
func NewRepository(protocol, ledger *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		protocol: protocol,
		ledger:   ledger,
		log:      log.With().Str("repo", "insurance").Logger(),
	}
}

// CreateVault inserts a vault.
func (r *Repository) CreateVault(vault *Vault) error {
	_, err := r.protocol.Exec(`
		INSERT INTO vaults (id, pool_id, total_reserve, coverage_ratio, claims_paid, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vault.ID, vault.PoolID, vault.TotalReserve, vault.CoverageRatio,
		vault.ClaimsPaid, string(vault.Status), vault.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}
	return nil
}

// GetVault returns a vault by id, or nil when unknown.
func (r *Repository) GetVault(id string) (*Vault, error) {
	row := r.protocol.QueryRow(`
		SELECT id, pool_id, total_reserve, coverage_ratio, claims_paid, status, created_at
		FROM vaults WHERE id = ?`, id)

	vault, err := scanVault(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return vault, nil
}

// ListVaults returns every vault, oldest first.
func (r *Repository) ListVaults() ([]*Vault, error) {
	rows, err := r.protocol.Query(`
		SELECT id, pool_id, total_reserve, coverage_ratio, claims_paid, status, created_at
		FROM vaults ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	defer rows.Close()

	var vaults []*Vault
	for rows.Next() {
		vault, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		vaults = append(vaults, vault)
	}
	return vaults, rows.Err()
}

// UpdateVault writes a vault's mutable fields.
func (r *Repository) UpdateVault(vault *Vault) error {
	_, err := r.protocol.Exec(`
		UPDATE vaults SET total_reserve = ?, claims_paid = ?, status = ? WHERE id = ?`,
		vault.TotalReserve, vault.ClaimsPaid, string(vault.Status), vault.ID)
	if err != nil {
		return fmt.Errorf("failed to update vault: %w", err)
	}
	return nil
}

// RecordClaim appends a claim outcome to the ledger.
func (r *Repository) RecordClaim(result *ClaimResult, createdAt time.Time) error {
	_, err := r.ledger.Exec(`
		INSERT INTO claims (id, vault_id, amount, covered, shortfall, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.ClaimID, result.VaultID, result.Amount, result.Covered,
		result.Shortfall, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record claim: %w", err)
	}
	return nil
}

// ListClaims returns a vault's claim history, oldest first.
func (r *Repository) ListClaims(vaultID string) ([]*ClaimResult, error) {
	rows, err := r.ledger.Query(`
		SELECT id, vault_id, amount, covered, shortfall FROM claims
		WHERE vault_id = ? ORDER BY created_at ASC, id ASC`, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var results []*ClaimResult
	for rows.Next() {
		var c ClaimResult
		if err := rows.Scan(&c.ClaimID, &c.VaultID, &c.Amount, &c.Covered, &c.Shortfall); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVault(row rowScanner) (*Vault, error) {
	var v Vault
	var status string
	var createdAt int64
	err := row.Scan(&v.ID, &v.PoolID, &v.TotalReserve, &v.CoverageRatio,
		&v.ClaimsPaid, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	v.Status = VaultStatus(status)
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &v, nil
}
