package service

import (
	"math/rand"
	"sync"

	"github.com/okian/crease/internal/domain/model"
)

// DefaultPlayers are the batters offered when none are configured.
func DefaultPlayers() []model.PlayerProfile {
	return []model.PlayerProfile{
		{Key: "rohit", Name: "Rohit Sharma", Power: 95, Technique: 92, Timing: 94},
		{Key: "virat", Name: "Virat Kohli", Power: 92, Technique: 98, Timing: 95},
	}
}

// lockedSource shares one *rand.Rand between sessions.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedSource(seed int64) *lockedSource {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // gameplay randomness
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}
