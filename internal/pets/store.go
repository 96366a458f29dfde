package pets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoStats is returned when a user has no pet yet.
var ErrNoStats = errors.New("pets: no stats for user")

// StatsStore persists pet stats, one row per user.
type StatsStore struct {
	db *sqlx.DB
}

// NewStatsStore wires the store to a database handle.
func NewStatsStore(db *sqlx.DB) *StatsStore {
	return &StatsStore{db: db}
}

// Get returns the user's pet stats, or ErrNoStats.
func (s *StatsStore) Get(ctx context.Context, userID int64) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT user_id, clean, energy, happiness, health, hunger,
		       in_bedroom, is_sleeping, updated_at
		FROM pet_stats
		WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, ErrNoStats
	}
	if err != nil {
		return Stats{}, fmt.Errorf("pets: get stats for %d: %w", userID, err)
	}
	return st, nil
}

// Save upserts the user's pet stats and stamps updated_at.
func (s *StatsStore) Save(ctx context.Context, st Stats) error {
	st.normalize()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pet_stats (user_id, clean, energy, happiness, health, hunger,
		                       in_bedroom, is_sleeping, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (user_id) DO UPDATE SET
			clean = EXCLUDED.clean,
			energy = EXCLUDED.energy,
			happiness = EXCLUDED.happiness,
			health = EXCLUDED.health,
			hunger = EXCLUDED.hunger,
			in_bedroom = EXCLUDED.in_bedroom,
			is_sleeping = EXCLUDED.is_sleeping,
			updated_at = now()`,
		st.UserID, st.Clean, st.Energy, st.Happiness, st.Health, st.Hunger,
		st.InBedroom, st.IsSleeping,
	)
	if err != nil {
		return fmt.Errorf("pets: save stats for %d: %w", st.UserID, err)
	}
	return nil
}
