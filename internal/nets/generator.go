package nets

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/crease/internal/domain/model"
)

// Gestures produces upward swipes from the lower half of a phone screen,
// with the occasional tap that the server should ignore.
type Gestures struct {
	rng *rand.Rand
}

// NewGestures creates a generator. Equal seeds give equal gesture streams.
func NewGestures(seed int64) *Gestures {
	return &Gestures{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // gameplay input, not security
}

// Next returns the next gesture.
func (g *Gestures) Next() model.SwipeGesture {
	x := originMinX + g.rng.Float64()*originRangeX
	y := originMinY + g.rng.Float64()*originRangeY
	if g.rng.Float64() < tapChance {
		return model.SwipeGesture{StartX: x, StartY: y, EndX: x + 2, EndY: y - 3}
	}
	return model.SwipeGesture{
		StartX: x,
		StartY: y,
		EndX:   x + g.rng.Float64()*lateralRange - lateralRange/2,
		EndY:   y - minLift - g.rng.Float64()*liftRange,
	}
}

// newSwipeID returns a fresh idempotency key for one swipe.
func newSwipeID() string {
	return uuid.New().String()
}

// newHandle returns a leaderboard handle unique to this run.
func newHandle() string {
	return handlePrefix + uuid.New().String()[:handleIDLength]
}
