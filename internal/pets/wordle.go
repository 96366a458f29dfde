package pets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Wordle is the word of the day submitted by a user.
type Wordle struct {
	UserID    int64     `db:"user_id"`
	Word      string    `db:"word"`
	Status    string    `db:"status"`
	Day       time.Time `db:"day"`
	CreatedAt time.Time `db:"created_at"`
}

// WordleStore keeps at most one wordle per calendar day.
type WordleStore struct {
	db *sqlx.DB
}

// NewWordleStore wires the store to a database handle.
func NewWordleStore(db *sqlx.DB) *WordleStore {
	return &WordleStore{db: db}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns today's wordle if one was submitted, with ok reporting
// existence.
func (s *WordleStore) Today(ctx context.Context, now time.Time) (Wordle, bool, error) {
	var w Wordle
	err := s.db.GetContext(ctx, &w, `
		SELECT user_id, word, status, day, created_at
		FROM wordles
		WHERE day = $1`, day(now))
	if errors.Is(err, sql.ErrNoRows) {
		return Wordle{}, false, nil
	}
	if err != nil {
		return Wordle{}, false, fmt.Errorf("pets: today's wordle: %w", err)
	}
	return w, true, nil
}

// Save stores today's wordle, replacing any existing entry for the day.
func (s *WordleStore) Save(ctx context.Context, userID int64, word string, now time.Time) error {
	status := "Unverified"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wordles (user_id, word, status, day)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			word = EXCLUDED.word,
			status = EXCLUDED.status,
			created_at = now()`,
		userID, word, status, day(now),
	)
	if err != nil {
		return fmt.Errorf("pets: save wordle: %w", err)
	}
	return nil
}

// CleanupOld deletes wordles older than yesterday and returns how many went.
func (s *WordleStore) CleanupOld(ctx context.Context, now time.Time) (int64, error) {
	yesterday := day(now).AddDate(0, 0, -1)
	res, err := s.db.ExecContext(ctx, `DELETE FROM wordles WHERE day < $1`, yesterday)
	if err != nil {
		return 0, fmt.Errorf("pets: cleanup wordles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
