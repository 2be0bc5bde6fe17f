package risk

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// RepositoryInterface defines risk profile persistence operations.
type RepositoryInterface interface {
	GetByUserID(userID string) (*Profile, error)
	SaveAssessment(profile *Profile, entry ScoreEntry) error
	GetHistory(userID string, limit int) ([]ScoreEntry, error)
	List() ([]*Profile, error)
}

// Repository persists risk profiles in the protocol database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new risk repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "risk").Logger(),
	}
}

// GetByUserID returns the profile for a user, or nil when the user has
// never been assessed. The returned profile carries its full history,
// oldest entries first.
func (r *Repository) GetByUserID(userID string) (*Profile, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, risk_score, probability_of_default, band_lower, band_upper, tier,
		       income_stability, repayment_history, sector_coefficient, liquidity_buffer,
		       last_calculated
		FROM risk_profiles WHERE user_id = ?`, userID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk profile: %w", err)
	}

	history, err := r.GetHistory(userID, 0)
	if err != nil {
		return nil, err
	}
	p.History = history
	return p, nil
}

// SaveAssessment upserts the current profile state and appends one
// history entry in a single transaction.
func (r *Repository) SaveAssessment(profile *Profile, entry ScoreEntry) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO risk_profiles (
				user_id, id, risk_score, probability_of_default, band_lower, band_upper, tier,
				income_stability, repayment_history, sector_coefficient, liquidity_buffer,
				last_calculated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				risk_score = excluded.risk_score,
				probability_of_default = excluded.probability_of_default,
				band_lower = excluded.band_lower,
				band_upper = excluded.band_upper,
				tier = excluded.tier,
				income_stability = excluded.income_stability,
				repayment_history = excluded.repayment_history,
				sector_coefficient = excluded.sector_coefficient,
				liquidity_buffer = excluded.liquidity_buffer,
				last_calculated = excluded.last_calculated`,
			profile.UserID, profile.ID, profile.RiskScore, profile.ProbabilityOfDefault,
			profile.ConfidenceBand[0], profile.ConfidenceBand[1], string(profile.Tier),
			profile.Inputs.IncomeStability, profile.Inputs.RepaymentHistory,
			profile.Inputs.SectorCoefficient, profile.Inputs.LiquidityBuffer,
			profile.LastCalculated.Unix())
		if err != nil {
			return fmt.Errorf("failed to upsert risk profile: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO risk_history (user_id, recorded_at, score, probability_of_default)
			VALUES (?, ?, ?, ?)`,
			profile.UserID, entry.RecordedAt.Unix(), entry.Score, entry.ProbabilityOfDefault)
		if err != nil {
			return fmt.Errorf("failed to append risk history: %w", err)
		}
		return nil
	})
}

// GetHistory returns score history for a user, oldest first.
// A limit of 0 means no limit.
func (r *Repository) GetHistory(userID string, limit int) ([]ScoreEntry, error) {
	query := `
		SELECT recorded_at, score, probability_of_default FROM risk_history
		WHERE user_id = ? ORDER BY recorded_at ASC, rowid ASC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk history: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var recordedAt int64
		if err := rows.Scan(&recordedAt, &e.Score, &e.ProbabilityOfDefault); err != nil {
			return nil, fmt.Errorf("failed to scan risk history row: %w", err)
		}
		e.RecordedAt = time.Unix(recordedAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns every stored profile without history.
func (r *Repository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, risk_score, probability_of_default, band_lower, band_upper, tier,
		       income_stability, repayment_history, sector_coefficient, liquidity_buffer,
		       last_calculated
		FROM risk_profiles ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var tier string
	var lastCalculated int64
	err := row.Scan(&p.ID, &p.UserID, &p.RiskScore, &p.ProbabilityOfDefault,
		&p.ConfidenceBand[0], &p.ConfidenceBand[1], &tier,
		&p.Inputs.IncomeStability, &p.Inputs.RepaymentHistory,
		&p.Inputs.SectorCoefficient, &p.Inputs.LiquidityBuffer,
		&lastCalculated)
	if err != nil {
		return nil, err
	}
	p.Tier = riskmath.Tier(tier)
	p.LastCalculated = time.Unix(lastCalculated, 0).UTC()
	return &p, nil
}
