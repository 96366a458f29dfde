// Package pets implements the pet dashboard and the wordle-of-the-day store.
package pets

import (
	"fmt"
	"time"
)

// Stats is one user's pet state. Percent fields are clamped to 0-100 on save.
type Stats struct {
	UserID     int64     `db:"user_id"`
	Clean      int       `db:"clean"`
	Energy     int       `db:"energy"`
	Happiness  int       `db:"happiness"`
	Health     int       `db:"health"`
	Hunger     int       `db:"hunger"`
	InBedroom  bool      `db:"in_bedroom"`
	IsSleeping bool      `db:"is_sleeping"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Render formats the dashboard text shown for /pet.
func (s Stats) Render() string {
	location := "Exploring 🌍"
	if s.InBedroom {
		location = "Bedroom 🛏️"
	}
	status := "Awake 🐇"
	if s.IsSleeping {
		status = "Sleeping 😴"
	}
	updated := "Never"
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.Format("15:04:05")
	}
	return fmt.Sprintf(
		"🧼: %d%%\n⚡: %d%%\n😊: %d%%\n♥️: %d%%\n🍗: %d%%\n\n🏠 Location: %s\n💤 Status: %s\n🔄 Last Updated: %s",
		s.Clean, s.Energy, s.Happiness, s.Health, s.Hunger,
		location, status, updated,
	)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (s *Stats) normalize() {
	s.Clean = clampPercent(s.Clean)
	s.Energy = clampPercent(s.Energy)
	s.Happiness = clampPercent(s.Happiness)
	s.Health = clampPercent(s.Health)
	s.Hunger = clampPercent(s.Hunger)
}
