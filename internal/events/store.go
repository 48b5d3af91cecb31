// Package events owns user interaction state: a durable append-only event
// log plus the per-user bandit registry, with a single reset operation that
// wipes both for one user.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clarion/internal/bandit"
	"clarion/internal/core"
	"clarion/internal/logger"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the event log and bandit registry. Appends are serialized by
// SQLite; bandit access is serialized per user by each bandit's own lock.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	bandits map[string]*bandit.Bandit

	impressionTimeout time.Duration
}

// NewStore opens (or creates) the event database under dataDir. An empty
// dataDir yields an in-memory database, used by tests.
func NewStore(dataDir string, impressionTimeout time.Duration) (*Store, error) {
	dsn := ":memory:"
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "clarion.db")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	store := &Store{
		db:                db,
		bandits:           make(map[string]*bandit.Bandit),
		impressionTimeout: impressionTimeout,
	}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize event database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		source_id TEXT,
		query_id TEXT,
		meta_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_user_time ON events(user_id, timestamp);`
	_, err := s.db.Exec(ddl)
	return err
}

// Ingest validates and appends one event, then applies its effect to the
// user's bandit. Intake is best-effort: malformed events are logged and
// dropped without error.
func (s *Store) Ingest(ctx context.Context, event core.UserEvent) error {
	if err := event.Validate(); err != nil {
		logger.Warn("dropping malformed event", "error", err.Error())
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var metaJSON []byte
	if event.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(event.Meta)
		if err != nil {
			logger.Warn("dropping event with unencodable meta", "userId", event.UserID, "error", err.Error())
			return nil
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, timestamp, event_type, source_id, query_id, meta_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), event.UserID, event.Timestamp, string(event.EventType),
		event.SourceID, event.QueryID, string(metaJSON))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	s.applyToBandit(event)
	return nil
}

// applyToBandit closes the feedback loop: click events with tagged features
// credit the clicked document's arms.
func (s *Store) applyToBandit(event core.UserEvent) {
	if event.Meta == nil || event.Meta.Features == nil {
		return
	}
	switch event.EventType {
	case core.EventSourceClicked, core.EventCitationClicked:
		s.Bandit(event.UserID).RecordClick(event.Meta.Features.Arms(), event.SourceID)
	}
}

// ListByUser returns a user's events in timestamp order.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]core.UserEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, timestamp, event_type, source_id, query_id, meta_json
		 FROM events WHERE user_id = ? ORDER BY timestamp`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []core.UserEvent{}
	for rows.Next() {
		var event core.UserEvent
		var eventType, metaJSON string
		if err := rows.Scan(&event.UserID, &event.Timestamp, &eventType,
			&event.SourceID, &event.QueryID, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.EventType = core.EventType(eventType)
		if metaJSON != "" {
			var meta core.EventMeta
			if err := json.Unmarshal([]byte(metaJSON), &meta); err == nil {
				event.Meta = &meta
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountByUser reports how many events a user has logged.
func (s *Store) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Bandit returns the user's bandit, creating it on first use.
func (s *Store) Bandit(userID string) *bandit.Bandit {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bandits[userID]
	if !ok {
		b = bandit.New(s.impressionTimeout)
		s.bandits[userID] = b
	}
	return b
}

// Reset deletes everything known about one user: the event rows and the
// bandit with all its pending impressions.
func (s *Store) Reset(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete events for user: %w", err)
	}
	s.mu.Lock()
	delete(s.bandits, userID)
	s.mu.Unlock()
	return nil
}

// TotalEvents reports the size of the whole event log.
func (s *Store) TotalEvents(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
