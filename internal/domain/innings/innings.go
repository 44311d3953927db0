// Package innings applies shot outcomes to an innings and runs the delivery
// cycle of one batter facing one over.
package innings

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/shot"
)

// ErrNoSwipe is returned when a gesture is too short to count; the delivery
// is not consumed and the batter may swipe again.
var ErrNoSwipe = errors.New("gesture too short to be a swipe")

// Resolver turns a swing into an outcome. *shot.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, p *model.PlayerProfile, s model.Swing, rng shot.RandomSource) (model.ShotOutcome, error)
}

// Play resolves one delivery against state and returns the next state. The
// input state is never modified; on error the caller keeps what it had.
func Play(ctx context.Context, state model.InningsState, p *model.PlayerProfile, s model.Swing, r Resolver, rng shot.RandomSource) (model.InningsState, model.ShotOutcome, error) {
	if state.IsOver || state.BallsRemaining <= 0 {
		return state, model.ShotOutcome{}, fmt.Errorf("%w: innings is over", model.ErrIllegalState)
	}

	out, err := r.Resolve(ctx, p, s, rng)
	if err != nil {
		return state, model.ShotOutcome{}, err
	}
	return Apply(state, out), out, nil
}

// Apply appends an outcome to a copy of state.
func Apply(state model.InningsState, out model.ShotOutcome) model.InningsState {
	next := state.Clone()
	next.History = append(next.History, out)
	next.BallsRemaining--
	next.TotalRuns += out.Runs
	next.IsOver = next.BallsRemaining == 0 || out.IsOut
	return next
}
