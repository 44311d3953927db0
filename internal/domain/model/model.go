// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Attribute bounds for player profiles.
const (
	MinAttribute = 0
	MaxAttribute = 100
)

// PlayerProfile is immutable reference data for a selectable batter.
type PlayerProfile struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Power     int    `json:"power"`
	Technique int    `json:"technique"`
	Timing    int    `json:"timing"`
}

// Validate reports whether the profile can be used for an innings.
func (p *PlayerProfile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: missing player profile", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: player profile has no name", ErrInvalidInput)
	}
	for _, a := range []struct {
		name string
		val  int
	}{
		{"power", p.Power},
		{"technique", p.Technique},
		{"timing", p.Timing},
	} {
		if a.val < MinAttribute || a.val > MaxAttribute {
			return fmt.Errorf("%w: %s %d outside [%d,%d]", ErrInvalidInput, a.name, a.val, MinAttribute, MaxAttribute)
		}
	}
	return nil
}

// PowerFactor is power scaled to [0,1].
func (p *PlayerProfile) PowerFactor() float64 { return float64(p.Power) / MaxAttribute }

// TimingFactor is timing scaled to [0,1].
func (p *PlayerProfile) TimingFactor() float64 { return float64(p.Timing) / MaxAttribute }

// SwipeGesture is one completed pointer or touch interaction, in input-device
// coordinates (Y grows downwards).
type SwipeGesture struct {
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`
}

// Swing is a normalized swipe. DirectionX/DirectionY form a unit vector
// whenever Magnitude > 0; DirectionY is inverted relative to input space.
type Swing struct {
	DirectionX float64 `json:"direction_x"`
	DirectionY float64 `json:"direction_y"`
	Magnitude  float64 `json:"magnitude"`
	Strength   float64 `json:"strength"`
}
