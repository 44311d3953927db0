package nets

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/types"
	"github.com/okian/crease/pkg/logger"
)

// ErrStalled is returned when an innings does not finish within its turn budget.
var ErrStalled = errors.New("innings did not finish")

// counters collects per batter tallies that the runner folds into Stats.
type counters struct {
	deliveries int
	noSwipes   int
	duplicates int
}

// batter plays Config.Innings innings under one handle and one session.
type batter struct {
	client   *Client
	gestures *Gestures
	player   string
	handle   string
	innings  int
	counters counters
	log      logger.Logger
}

// play opens a session, plays every innings and ends the session. The best
// innings is ranked by runs, then fewer balls, the way the leaderboard ranks.
func (b *batter) play(ctx context.Context, sessions chan<- string) (BatterResult, error) {
	res := BatterResult{Handle: b.handle, Player: b.player}

	v, err := b.client.StartSession(ctx, b.player, b.handle)
	if err != nil {
		return res, fmt.Errorf("start session for %s: %w", b.handle, err)
	}
	if sessions != nil {
		sessions <- v.ID
	}
	defer func() {
		if err := b.client.EndSession(context.WithoutCancel(ctx), v.ID); err != nil {
			b.log.Warn(ctx, "failed to end session", logger.String("session", v.ID), logger.Error(err))
		}
	}()

	for i := 0; i < b.innings; i++ {
		if i > 0 {
			if _, err := b.client.Reset(ctx, v.ID); err != nil {
				return res, fmt.Errorf("reset %s: %w", b.handle, err)
			}
		}
		if err := b.playInnings(ctx, v.ID); err != nil {
			return res, err
		}

		sum, card, err := b.client.Scorecard(ctx, v.ID)
		if err != nil {
			return res, fmt.Errorf("scorecard %s: %w", b.handle, err)
		}
		res.Innings++
		if res.Innings == 1 || better(sum.Runs, sum.BallsFaced, res.Best.Runs, res.Best.BallsFaced) {
			res.Best, res.Card = sum, card
		}
		b.log.Debug(ctx, "innings complete",
			logger.String("handle", b.handle),
			logger.Int("runs", sum.Runs),
			logger.Int("balls", sum.BallsFaced))
	}
	return res, nil
}

// playInnings swipes until the session reports the innings over. Every
// duplicateEvery-th delivery is resent to check that the server replays it.
func (b *batter) playInnings(ctx context.Context, id string) error {
	for turn := 0; turn < maxTurnsPerOne; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		swipeID := newSwipeID()
		res, err := b.client.Swipe(ctx, id, swipeID, b.gestures.Next())
		if err != nil {
			return fmt.Errorf("swipe %s: %w", b.handle, err)
		}

		switch res.Status {
		case types.SwipeIgnored:
			b.counters.noSwipes++
			continue
		case types.SwipeDelivered:
			b.counters.deliveries++
		}

		if b.counters.deliveries%duplicateEvery == 0 {
			if err := b.replay(ctx, id, swipeID, res); err != nil {
				return err
			}
		}

		phase := res.Session.Phase
		if phase == model.DeliveryDone {
			v, err := b.client.Next(ctx, id)
			if err != nil {
				return fmt.Errorf("next %s: %w", b.handle, err)
			}
			phase = v.Phase
		}
		if phase == model.InningsOver {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", b.handle, ErrStalled)
}

// replay resends swipeID and checks that the same delivery comes back.
func (b *batter) replay(ctx context.Context, id, swipeID string, first types.SwipeResult) error {
	again, err := b.client.Swipe(ctx, id, swipeID, b.gestures.Next())
	if err != nil {
		return fmt.Errorf("replay %s: %w", b.handle, err)
	}
	if again.Status != types.SwipeDuplicate {
		return fmt.Errorf("replay %s: status %q, want %q", b.handle, again.Status, types.SwipeDuplicate)
	}
	if again.Delivery == nil || first.Delivery == nil || again.Delivery.Ball != first.Delivery.Ball {
		return fmt.Errorf("replay %s: delivery not replayed", b.handle)
	}
	b.counters.duplicates++
	return nil
}

// better reports whether runs off balls beats bestRuns off bestBalls.
func better(runs, balls, bestRuns, bestBalls int) bool {
	if runs != bestRuns {
		return runs > bestRuns
	}
	return balls < bestBalls
}
