package model

import (
	"encoding/json"
	"fmt"
)

// OutcomeKind classifies the result of one delivery.
type OutcomeKind int

// Outcome kinds.
const (
	MissOut OutcomeKind = iota + 1
	DotBall
	Run1
	Run2
	Run3
	Four
	Six
	TechniqueOut
)

var outcomeNames = map[OutcomeKind]string{
	MissOut:      "MISS_OUT",
	DotBall:      "DOT_BALL",
	Run1:         "RUN_1",
	Run2:         "RUN_2",
	Run3:         "RUN_3",
	Four:         "FOUR",
	Six:          "SIX",
	TechniqueOut: "TECHNIQUE_OUT",
}

// OutcomeKinds lists every kind in declaration order.
func OutcomeKinds() []OutcomeKind {
	return []OutcomeKind{MissOut, DotBall, Run1, Run2, Run3, Four, Six, TechniqueOut}
}

func (k OutcomeKind) String() string {
	if n, ok := outcomeNames[k]; ok {
		return n
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// IsOut reports whether the kind dismisses the batter.
func (k OutcomeKind) IsOut() bool { return k == MissOut || k == TechniqueOut }

// Runs returns the runs credited for the kind.
func (k OutcomeKind) Runs() int {
	switch k {
	case Run1:
		return 1
	case Run2:
		return 2
	case Run3:
		return 3
	case Four:
		return 4
	case Six:
		return 6
	default:
		return 0
	}
}

// RunningKind maps 0..3 completed runs to a kind.
func RunningKind(runs int) OutcomeKind {
	switch runs {
	case 1:
		return Run1
	case 2:
		return Run2
	case 3:
		return Run3
	default:
		return DotBall
	}
}

// MarshalJSON encodes the kind by name.
func (k OutcomeKind) MarshalJSON() ([]byte, error) {
	n, ok := outcomeNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown outcome kind %d", ErrInvalidInput, int(k))
	}
	return json.Marshal(n)
}

// UnmarshalJSON decodes a kind name.
func (k *OutcomeKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for kind, n := range outcomeNames {
		if n == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: unknown outcome kind %q", ErrInvalidInput, s)
}

// ShotOutcome is the immutable result of resolving one swing.
// TravelDistance and Apex are only meaningful when the ball was struck.
type ShotOutcome struct {
	Kind           OutcomeKind `json:"kind"`
	Runs           int         `json:"runs"`
	IsOut          bool        `json:"is_out"`
	TravelDistance float64     `json:"travel_distance"`
	Apex           float64     `json:"apex"`
}

// NewOutcome builds an outcome whose runs and dismissal agree with kind.
func NewOutcome(kind OutcomeKind, distance, apex float64) ShotOutcome {
	return ShotOutcome{
		Kind:           kind,
		Runs:           kind.Runs(),
		IsOut:          kind.IsOut(),
		TravelDistance: distance,
		Apex:           apex,
	}
}

// Banner is the short text a scoreboard flashes for the outcome.
func (o ShotOutcome) Banner() string {
	switch {
	case o.IsOut:
		return "OUT!"
	case o.Kind == Six:
		return "SIX!"
	case o.Kind == Four:
		return "FOUR!"
	case o.Runs == 1:
		return "1 RUN"
	case o.Runs > 0:
		return fmt.Sprintf("%d RUNS", o.Runs)
	default:
		return "NO RUN"
	}
}
