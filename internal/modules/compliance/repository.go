package compliance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RepositoryInterface defines compliance flag persistence operations.
type RepositoryInterface interface {
	Create(flag *Flag) error
	Get(id string) (*Flag, error)
	List(status FlagStatus) ([]*Flag, error)
	UpdateStatus(id string, status FlagStatus, resolvedAt *time.Time) error
}

// Repository persists compliance flags in the protocol database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new compliance repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "compliance").Logger(),
	}
}

// Create inserts a flag.
func (r *Repository) Create(flag *Flag) error {
	_, err := r.db.Exec(`
		INSERT INTO flags (id, contract_id, user_id, type, severity, title, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flag.ID, nullable(flag.ContractID), nullable(flag.UserID), string(flag.Type),
		string(flag.Severity), flag.Title, flag.Description, string(flag.Status),
		flag.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create flag: %w", err)
	}
	return nil
}

// Get returns a flag by id, or nil when unknown.
func (r *Repository) Get(id string) (*Flag, error) {
	row := r.db.QueryRow(`
		SELECT id, contract_id, user_id, type, severity, title, description, status, created_at, resolved_at
		FROM flags WHERE id = ?`, id)

	flag, err := scanFlag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}
	return flag, nil
}

// List returns flags, optionally filtered by status, newest first.
func (r *Repository) List(status FlagStatus) ([]*Flag, error) {
	query := `
		SELECT id, contract_id, user_id, type, severity, title, description, status, created_at, resolved_at
		FROM flags`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	defer rows.Close()

	var flags []*Flag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

// UpdateStatus writes a flag's status and resolution timestamp.
func (r *Repository) UpdateStatus(id string, status FlagStatus, resolvedAt *time.Time) error {
	var resolvedAtUnix interface{}
	if resolvedAt != nil {
		resolvedAtUnix = resolvedAt.Unix()
	}
	result, err := r.db.Exec(`
		UPDATE flags SET status = ?, resolved_at = ? WHERE id = ?`,
		string(status), resolvedAtUnix, id)
	if err != nil {
		return fmt.Errorf("failed to update flag: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("no flag %s", id)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFlag(row rowScanner) (*Flag, error) {
	var f Flag
	var contractID, userID sql.NullString
	var flagType, severity, status string
	var createdAt int64
	var resolvedAt sql.NullInt64
	err := row.Scan(&f.ID, &contractID, &userID, &flagType, &severity,
		&f.Title, &f.Description, &status, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	f.ContractID = contractID.String
	f.UserID = userID.String
	f.Type = FlagType(flagType)
	f.Severity = Severity(severity)
	f.Status = FlagStatus(status)
	f.CreatedAt = time.Unix(createdAt, 0).UTC()
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0).UTC()
		f.ResolvedAt = &t
	}
	return &f, nil
}
