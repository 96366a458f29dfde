package pets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderAwakeExploring(t *testing.T) {
	s := Stats{
		Clean:     80,
		Energy:    55,
		Happiness: 90,
		Health:    100,
		Hunger:    20,
		UpdatedAt: time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC),
	}

	out := s.Render()
	assert.Contains(t, out, "🧼: 80%")
	assert.Contains(t, out, "🍗: 20%")
	assert.Contains(t, out, "Location: Exploring 🌍")
	assert.Contains(t, out, "Status: Awake 🐇")
	assert.Contains(t, out, "14:05:09")
}

func TestRenderSleepingInBedroom(t *testing.T) {
	s := Stats{InBedroom: true, IsSleeping: true}

	out := s.Render()
	assert.Contains(t, out, "Location: Bedroom 🛏️")
	assert.Contains(t, out, "Status: Sleeping 😴")
	assert.Contains(t, out, "Last Updated: Never")
}

func TestNormalizeClampsPercents(t *testing.T) {
	s := Stats{Clean: -5, Energy: 150, Happiness: 50}
	s.normalize()

	assert.Equal(t, 0, s.Clean)
	assert.Equal(t, 100, s.Energy)
	assert.Equal(t, 50, s.Happiness)
}

func TestDayTruncates(t *testing.T) {
	d := day(time.Date(2026, 8, 30, 23, 59, 58, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), d)
}
