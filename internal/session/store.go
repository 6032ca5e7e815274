package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"brainoutai/internal/models"
)

// StorageKey is the fixed key the session record is persisted under.
const StorageKey = "brainoutai-session"

// Store persists the single session record. Load returns (nil, nil) when no
// usable record exists; a corrupt record is treated the same way so callers
// always recover by recreating a fresh session.
type Store interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
}

// DBStore keeps the session record as a JSON blob in the session_state table.
type DBStore struct {
	db  *sql.DB
	key string
}

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db, key: StorageKey}
}

func (s *DBStore) Load(ctx context.Context) (*models.Session, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM session_state WHERE state_key = ?`, s.key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// Corrupt state is recreated, not surfaced.
		log.Printf("discarding corrupt session record: %v", err)
		return nil, nil
	}
	if sess.SessionID == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *DBStore) Save(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return errors.New("session required")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_state (state_key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(state_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
