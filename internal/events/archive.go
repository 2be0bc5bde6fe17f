package events

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Archive persists published events to the cache database so the
// dashboards can page through recent protocol activity. Payloads are
// stored as msgpack blobs; the cache profile means losing this table is
// acceptable.
type Archive struct {
	db  *sql.DB // cache.db
	log zerolog.Logger
}

// NewArchive creates a new event archive over the cache database.
func NewArchive(db *sql.DB, log zerolog.Logger) *Archive {
	return &Archive{
		db:  db,
		log: log.With().Str("repo", "event_archive").Logger(),
	}
}

// Attach subscribes the archive to every event on the bus.
// Store failures are logged and swallowed: archiving is best-effort and
// must never fail an emitting operation.
func (a *Archive) Attach(bus *Bus) {
	bus.SubscribeAll(func(event *Event) {
		if err := a.Store(event); err != nil {
			a.log.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to archive event")
		}
	})
}

// Store persists a single event.
func (a *Archive) Store(event *Event) error {
	var payload []byte
	if event.Data != nil {
		encoded, err := msgpack.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
		payload = encoded
	}

	_, err := a.db.Exec(
		`INSERT INTO event_log (id, type, module, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID, string(event.Type), event.Module, payload, event.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns the newest events, newest first, up to limit.
// An empty eventType returns events of every type.
func (a *Archive) Recent(eventType EventType, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, type, module, payload, created_at FROM event_log`
	args := []interface{}{}
	if eventType != "" {
		query += ` WHERE type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event log: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		var (
			event     Event
			eventT    string
			payload   []byte
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &eventT, &event.Module, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Type = EventType(eventT)
		event.Timestamp = time.Unix(createdAt, 0).UTC()

		if len(payload) > 0 {
			if err := msgpack.Unmarshal(payload, &event.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event payload: %w", err)
			}
		}
		result = append(result, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event log: %w", err)
	}

	return result, nil
}

// Prune deletes events older than the cutoff. Returns rows removed.
func (a *Archive) Prune(olderThan time.Time) (int64, error) {
	res, err := a.db.Exec(`DELETE FROM event_log WHERE created_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune event log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
