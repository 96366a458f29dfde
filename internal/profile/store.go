// Package profile persists per-user profile documents and error logs.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pettai/petbot/core/logger"
	"log/slog"
)

// ErrNotFound is returned when a user has no stored document.
var ErrNotFound = errors.New("profile: not found")

// Document is an arbitrary JSON object stored per user.
type Document map[string]any

// Store keeps profile documents in a JSONB column keyed by the Telegram user
// ID. Put supports Firestore-style merge semantics.
type Store struct {
	db *sqlx.DB
}

// NewStore wires the store to a database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Get returns the user's document, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID int64) (Document, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT data FROM profiles WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get %d: %w", userID, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("profile: decode %d: %w", userID, err)
	}
	return doc, nil
}

// Put stores the document. With merge, existing top-level keys not present in
// data are retained; without, the document is replaced wholesale.
func (s *Store) Put(ctx context.Context, userID int64, data Document, merge bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("profile: encode %d: %w", userID, err)
	}

	query := `
		INSERT INTO profiles (user_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()`
	if merge {
		query = `
			INSERT INTO profiles (user_id, data, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO UPDATE
			SET data = profiles.data || EXCLUDED.data, updated_at = now()`
	}

	if _, err := s.db.ExecContext(ctx, query, userID, raw); err != nil {
		return fmt.Errorf("profile: put %d: %w", userID, err)
	}
	return nil
}

// Delete removes the user's document. Deleting an absent document is not an error.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("profile: delete %d: %w", userID, err)
	}
	return nil
}

// SaveSession merges the session credential and its timestamp into the
// user's document.
func (s *Store) SaveSession(ctx context.Context, userID int64, session string) error {
	err := s.Put(ctx, userID, Document{
		"session":          session,
		"session_saved_at": time.Now().UTC().Format(time.RFC3339),
	}, true)
	if err != nil {
		return err
	}
	logger.Info(ctx, "service.profile", "session.saved",
		slog.Int64("user_id", userID),
	)
	return nil
}

// ErrorEntry is one appended user error.
type ErrorEntry struct {
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// LogError appends an entry to the user's error log.
func (s *Store) LogError(ctx context.Context, userID int64, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_errors (user_id, message) VALUES ($1, $2)`,
		userID, message,
	)
	if err != nil {
		return fmt.Errorf("profile: log error for %d: %w", userID, err)
	}
	return nil
}

// RecentErrors returns the user's newest error entries, capped at limit
// (defaulting to 5).
func (s *Store) RecentErrors(ctx context.Context, userID int64, limit int) ([]ErrorEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	var entries []ErrorEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT message, created_at
		FROM user_errors
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("profile: recent errors for %d: %w", userID, err)
	}
	return entries, nil
}
