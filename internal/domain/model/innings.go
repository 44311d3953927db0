package model

// BallsPerInnings is the length of an innings: one over.
const BallsPerInnings = 6

// InningsState is the explicitly owned state of one innings.
//
// IsOver holds iff BallsRemaining == 0 or the last outcome dismissed the
// batter. History is append-only.
type InningsState struct {
	BallsRemaining int           `json:"balls_remaining"`
	TotalRuns      int           `json:"total_runs"`
	IsOver         bool          `json:"is_over"`
	History        []ShotOutcome `json:"history"`
}

// NewInningsState returns the state at the start of an innings.
func NewInningsState() InningsState {
	return InningsState{
		BallsRemaining: BallsPerInnings,
		History:        make([]ShotOutcome, 0, BallsPerInnings),
	}
}

// Clone returns a deep copy so callers never share the history slice.
func (s InningsState) Clone() InningsState {
	c := s
	c.History = make([]ShotOutcome, len(s.History), max(len(s.History), BallsPerInnings))
	copy(c.History, s.History)
	return c
}

// BallsFaced is the number of deliveries played so far.
func (s InningsState) BallsFaced() int { return len(s.History) }

// Last returns the most recent outcome, if any.
func (s InningsState) Last() (ShotOutcome, bool) {
	if len(s.History) == 0 {
		return ShotOutcome{}, false
	}
	return s.History[len(s.History)-1], true
}

// Count returns how many deliveries ended with kind.
func (s InningsState) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range s.History {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Dismissed reports whether the innings ended with the batter out.
func (s InningsState) Dismissed() bool {
	last, ok := s.Last()
	return ok && last.IsOut
}
