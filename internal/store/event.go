package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DefaultEventLimit caps ListRecent when no positive limit is given.
const DefaultEventLimit = 50

// Event records one dispatch of a triggered label.
type Event struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	PluginName string    `json:"plugin_name"`
	ActionName string    `json:"action_name"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventRepository stores trigger history.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e, assigning an ID and timestamp when unset.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, label, plugin_name, action_name, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Label, e.PluginName, e.ActionName, e.Success, e.Error, e.CreatedAt,
	)
	return err
}

// ListRecent returns up to limit events, newest first.
func (r *EventRepository) ListRecent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	rows, err := r.db.Query(
		`SELECT id, label, plugin_name, action_name, success, error, created_at
		 FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var success int
		if err := rows.Scan(&e.ID, &e.Label, &e.PluginName, &e.ActionName, &success, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Success = success != 0
		events = append(events, e)
	}

	return events, rows.Err()
}

// DeleteBefore removes events older than t and returns how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
