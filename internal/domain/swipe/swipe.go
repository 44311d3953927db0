// Package swipe turns raw gestures into normalized swings.
package swipe

import (
	"fmt"
	"math"

	"github.com/okian/crease/internal/domain/model"
)

// Gesture tuning, in input-device pixels.
const (
	// MinMagnitude is the noise threshold; gestures at or below it are ignored.
	MinMagnitude = 30.0
	// MaxMagnitude is the distance at which a swing reaches full strength.
	MaxMagnitude = 300.0
)

// Validate rejects malformed gestures.
func Validate(g model.SwipeGesture) error {
	for _, v := range []float64{g.StartX, g.StartY, g.EndX, g.EndY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: gesture coordinates must be finite", model.ErrInvalidInput)
		}
	}
	return nil
}

// Interpret normalizes a gesture. The boolean is false when the gesture is too
// short to count as a swipe; the caller should keep waiting for a new one.
func Interpret(g model.SwipeGesture) (model.Swing, bool) {
	dx := g.EndX - g.StartX
	dy := g.EndY - g.StartY
	magnitude := math.Hypot(dx, dy)
	if !(magnitude > MinMagnitude) {
		return model.Swing{Magnitude: magnitude}, false
	}
	return model.Swing{
		DirectionX: dx / magnitude,
		// screen-down maps to "into the scene"
		DirectionY: -dy / magnitude,
		Magnitude:  magnitude,
		Strength:   math.Min(magnitude, MaxMagnitude) / MaxMagnitude,
	}, true
}
