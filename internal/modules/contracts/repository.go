package contracts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// RepositoryInterface defines contract persistence operations.
type RepositoryInterface interface {
	Create(contract *Contract) error
	Get(id string) (*Contract, error)
	List(status Status) ([]*Contract, error)
	UpdateFunding(id string, fundedAmount float64, status Status, updatedAt time.Time) error
	UpdateStatus(id string, status Status, updatedAt time.Time) error
	MarkRepayment(contractID string, seq int, status RepaymentStatus, paidAt *time.Time) error
	OverduePending(asOf time.Time) ([]OverdueEntry, error)
	MarkLate(contractID string, seq int) error
	CountByStatus() (map[Status]int, error)
}

// OverdueEntry identifies one pending schedule entry past its due date.
type OverdueEntry struct {
	ContractID string
	Seq        int
	DueDate    time.Time
}

// Repository persists contracts in the ledger database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new contracts repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "contracts").Logger(),
	}
}

// Create inserts a contract and its full repayment schedule in one
// transaction.
func (r *Repository) Create(contract *Contract) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO contracts (
				id, borrower_id, nft_id, principal, interest_rate, term_months,
				monthly_payment, status, risk_tier, risk_score, funded_amount,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			contract.ID, contract.BorrowerID, contract.NFTID, contract.Principal,
			contract.InterestRate, contract.Term, contract.MonthlyPayment,
			string(contract.Status), string(contract.RiskTier), contract.RiskScore,
			contract.FundedAmount, contract.CreatedAt.Unix(), contract.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert contract: %w", err)
		}

		for _, entry := range contract.RepaymentSchedule {
			_, err := tx.Exec(`
				INSERT INTO repayment_schedule (contract_id, seq, due_date, amount, status)
				VALUES (?, ?, ?, ?, ?)`,
				contract.ID, entry.Seq, entry.DueDate.Unix(), entry.Amount, string(entry.Status))
			if err != nil {
				return fmt.Errorf("failed to insert schedule entry %d: %w", entry.Seq, err)
			}
		}
		return nil
	})
}

// Get returns a contract with its schedule, or nil when unknown.
func (r *Repository) Get(id string) (*Contract, error) {
	row := r.db.QueryRow(`
		SELECT id, borrower_id, nft_id, principal, interest_rate, term_months,
		       monthly_payment, status, risk_tier, risk_score, funded_amount,
		       created_at, updated_at
		FROM contracts WHERE id = ?`, id)

	contract, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	contract.RepaymentSchedule, err = r.schedule(id)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// List returns contracts, optionally filtered by status, newest first.
// Schedules are not loaded for listings.
func (r *Repository) List(status Status) ([]*Contract, error) {
	query := `
		SELECT id, borrower_id, nft_id, principal, interest_rate, term_months,
		       monthly_payment, status, risk_tier, risk_score, funded_amount,
		       created_at, updated_at
		FROM contracts`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

// UpdateFunding writes the accumulated funded amount and status in one
// statement, keeping the funding and the auto-transition atomic.
func (r *Repository) UpdateFunding(id string, fundedAmount float64, status Status, updatedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE contracts SET funded_amount = ?, status = ?, updated_at = ? WHERE id = ?`,
		fundedAmount, string(status), updatedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update contract funding: %w", err)
	}
	return nil
}

// UpdateStatus writes a new lifecycle status.
func (r *Repository) UpdateStatus(id string, status Status, updatedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE contracts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	return nil
}

// MarkRepayment sets the status of one schedule entry.
func (r *Repository) MarkRepayment(contractID string, seq int, status RepaymentStatus, paidAt *time.Time) error {
	var paidAtUnix interface{}
	if paidAt != nil {
		paidAtUnix = paidAt.Unix()
	}
	result, err := r.db.Exec(`
		UPDATE repayment_schedule SET status = ?, paid_at = ?
		WHERE contract_id = ? AND seq = ?`,
		string(status), paidAtUnix, contractID, seq)
	if err != nil {
		return fmt.Errorf("failed to mark repayment: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("no schedule entry %d for contract %s", seq, contractID)
	}
	return nil
}

// OverduePending returns every pending schedule entry whose due date
// has passed.
func (r *Repository) OverduePending(asOf time.Time) ([]OverdueEntry, error) {
	rows, err := r.db.Query(`
		SELECT contract_id, seq, due_date FROM repayment_schedule
		WHERE status = ? AND due_date < ?
		ORDER BY due_date ASC`,
		string(RepaymentPending), asOf.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue entries: %w", err)
	}
	defer rows.Close()

	var entries []OverdueEntry
	for rows.Next() {
		var e OverdueEntry
		var dueDate int64
		if err := rows.Scan(&e.ContractID, &e.Seq, &dueDate); err != nil {
			return nil, fmt.Errorf("failed to scan overdue entry: %w", err)
		}
		e.DueDate = time.Unix(dueDate, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkLate flips one schedule entry to late.
func (r *Repository) MarkLate(contractID string, seq int) error {
	return r.MarkRepayment(contractID, seq, RepaymentLate, nil)
}

// CountByStatus returns the number of contracts in each lifecycle state.
func (r *Repository) CountByStatus() (map[Status]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM contracts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan contract count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func (r *Repository) schedule(contractID string) ([]RepaymentEntry, error) {
	rows, err := r.db.Query(`
		SELECT seq, due_date, amount, status, paid_at FROM repayment_schedule
		WHERE contract_id = ? ORDER BY seq ASC`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var entries []RepaymentEntry
	for rows.Next() {
		var e RepaymentEntry
		var dueDate int64
		var status string
		var paidAt sql.NullInt64
		if err := rows.Scan(&e.Seq, &dueDate, &e.Amount, &status, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		e.DueDate = time.Unix(dueDate, 0).UTC()
		e.Status = RepaymentStatus(status)
		if paidAt.Valid {
			t := time.Unix(paidAt.Int64, 0).UTC()
			e.PaidAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContract(row rowScanner) (*Contract, error) {
	var c Contract
	var status, tier string
	var createdAt, updatedAt int64
	err := row.Scan(&c.ID, &c.BorrowerID, &c.NFTID, &c.Principal, &c.InterestRate,
		&c.Term, &c.MonthlyPayment, &status, &tier, &c.RiskScore, &c.FundedAmount,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = Status(status)
	c.RiskTier = riskmath.Tier(tier)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &c, nil
}
