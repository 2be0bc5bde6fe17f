package income

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/database"
)

// RepositoryInterface defines income source persistence operations.
type RepositoryInterface interface {
	CreateSource(source *Source) error
	GetSource(id string) (*Source, error)
	ListByUser(userID string) ([]*Source, error)
	AppendEarning(source *Source, earning MonthlyEarning) error
}

// Repository persists income sources in the protocol database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new income repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "income").Logger(),
	}
}

// CreateSource inserts a new income source.
func (r *Repository) CreateSource(source *Source) error {
	_, err := r.db.Exec(`
		INSERT INTO income_sources (id, user_id, type, name, amount, frequency, volatility, stability_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		source.ID, source.UserID, string(source.Type), source.Name, source.Amount,
		string(source.Frequency), source.Volatility, source.StabilityIndex, source.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create income source: %w", err)
	}
	return nil
}

// GetSource returns a source with its full earnings series, or nil when
// no source has that id.
func (r *Repository) GetSource(id string) (*Source, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, type, name, amount, frequency, volatility, stability_index, created_at
		FROM income_sources WHERE id = ?`, id)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get income source: %w", err)
	}

	source.HistoricalEarnings, err = r.earnings(id)
	if err != nil {
		return nil, err
	}
	return source, nil
}

// ListByUser returns all of a user's sources with their earnings,
// oldest sources first.
func (r *Repository) ListByUser(userID string) ([]*Source, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, type, name, amount, frequency, volatility, stability_index, created_at
		FROM income_sources WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list income sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, source := range sources {
		source.HistoricalEarnings, err = r.earnings(source.ID)
		if err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// AppendEarning stores the next earning for a source and persists the
// source's recomputed volatility and stability index in one transaction.
func (r *Repository) AppendEarning(source *Source, earning MonthlyEarning) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		verified := 0
		if earning.Verified {
			verified = 1
		}
		_, err := tx.Exec(`
			INSERT INTO monthly_earnings (source_id, seq, month, amount, verified)
			VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM monthly_earnings WHERE source_id = ?), ?, ?, ?)`,
			source.ID, source.ID, earning.Month, earning.Amount, verified)
		if err != nil {
			return fmt.Errorf("failed to append earning: %w", err)
		}

		_, err = tx.Exec(`
			UPDATE income_sources SET volatility = ?, stability_index = ? WHERE id = ?`,
			source.Volatility, source.StabilityIndex, source.ID)
		if err != nil {
			return fmt.Errorf("failed to update source metrics: %w", err)
		}
		return nil
	})
}

func (r *Repository) earnings(sourceID string) ([]MonthlyEarning, error) {
	rows, err := r.db.Query(`
		SELECT month, amount, verified FROM monthly_earnings
		WHERE source_id = ? ORDER BY seq ASC`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings: %w", err)
	}
	defer rows.Close()

	var earnings []MonthlyEarning
	for rows.Next() {
		var e MonthlyEarning
		var verified int
		if err := rows.Scan(&e.Month, &e.Amount, &verified); err != nil {
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		e.Verified = verified != 0
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*Source, error) {
	var s Source
	var sourceType, frequency string
	var createdAt int64
	err := row.Scan(&s.ID, &s.UserID, &sourceType, &s.Name, &s.Amount,
		&frequency, &s.Volatility, &s.StabilityIndex, &createdAt)
	if err != nil {
		return nil, err
	}
	s.Type = SourceType(sourceType)
	s.Frequency = Frequency(frequency)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}
