package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// AudioCue is a discrete sound the audio collaborator may play.
type AudioCue string

// Audio cues.
const (
	CueBatContact AudioCue = "BAT_CONTACT"
	CueFour       AudioCue = "FOUR"
	CueSix        AudioCue = "SIX"
	CueOut        AudioCue = "OUT"
	CueCrowdCheer AudioCue = "CROWD_CHEER"
)

// CueFor selects the cue played for an outcome kind.
func CueFor(kind OutcomeKind) AudioCue {
	switch kind {
	case MissOut, TechniqueOut:
		return CueOut
	case Six:
		return CueSix
	case Four:
		return CueFour
	case Run1, Run2, Run3:
		return CueCrowdCheer
	default:
		return CueBatContact
	}
}

// Phase is the controller's position in the delivery cycle.
type Phase int

// Delivery phases.
const (
	AwaitingSwipe Phase = iota + 1
	Resolving
	DeliveryDone
	InningsOver
)

var phaseNames = map[Phase]string{
	AwaitingSwipe: "AWAITING_SWIPE",
	Resolving:     "RESOLVING",
	DeliveryDone:  "DELIVERY_DONE",
	InningsOver:   "INNINGS_OVER",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// UnmarshalJSON decodes a phase name.
func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for ph, n := range phaseNames {
		if n == s {
			*p = ph
			return nil
		}
	}
	return fmt.Errorf("%w: unknown phase %q", ErrInvalidInput, s)
}

// DeliveryEvent is what the core emits after each delivery for rendering, UI
// and audio collaborators. State is a snapshot the receiver may keep.
type DeliveryEvent struct {
	SessionID string       `json:"session_id"`
	Ball      int          `json:"ball"`
	Outcome   ShotOutcome  `json:"outcome"`
	Banner    string       `json:"banner"`
	Cue       AudioCue     `json:"cue"`
	State     InningsState `json:"state"`
	Phase     Phase        `json:"phase"`
	At        time.Time    `json:"at"`
}

// InningsResult is recorded once an innings is over.
type InningsResult struct {
	SessionID  string    `json:"session_id"`
	Handle     string    `json:"handle"`
	PlayerKey  string    `json:"player"`
	Runs       int       `json:"runs"`
	BallsFaced int       `json:"balls_faced"`
	Fours      int       `json:"fours"`
	Sixes      int       `json:"sixes"`
	Dismissed  bool      `json:"dismissed"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewInningsResult summarizes a finished state.
func NewInningsResult(sessionID, handle, playerKey string, s InningsState, at time.Time) InningsResult {
	return InningsResult{
		SessionID:  sessionID,
		Handle:     handle,
		PlayerKey:  playerKey,
		Runs:       s.TotalRuns,
		BallsFaced: s.BallsFaced(),
		Fours:      s.Count(Four),
		Sixes:      s.Count(Six),
		Dismissed:  s.Dismissed(),
		FinishedAt: at,
	}
}
