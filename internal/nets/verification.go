package nets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/okian/crease/internal/domain/types"
)

// ErrMismatch is returned when the leaderboard disagrees with what was played.
var ErrMismatch = errors.New("leaderboard mismatch")

// awaitRanks polls GET /rank/{handle} until every batter's best innings is
// visible or settle elapses. Results are recorded asynchronously by the server.
func awaitRanks(ctx context.Context, client *Client, results []BatterResult, settle time.Duration) (map[string]types.Entry, error) {
	deadline := time.Now().Add(settle)
	rows := make(map[string]types.Entry, len(results))

	for {
		for _, r := range results {
			if got, ok := rows[r.Handle]; ok && got.Runs == r.Best.Runs {
				continue
			}
			e, err := client.Rank(ctx, r.Handle)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.Code == "not_found" {
					continue
				}
				return nil, err
			}
			rows[r.Handle] = e
		}

		if settled(rows, results) || time.Now().After(deadline) {
			return rows, nil
		}
		select {
		case <-ctx.Done():
			return rows, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func settled(rows map[string]types.Entry, results []BatterResult) bool {
	for _, r := range results {
		if e, ok := rows[r.Handle]; !ok || e.Runs != r.Best.Runs {
			return false
		}
	}
	return true
}

// verifyRanks checks that each handle's row holds its best innings.
func verifyRanks(rows map[string]types.Entry, results []BatterResult) error {
	for _, r := range results {
		e, ok := rows[r.Handle]
		if !ok {
			return fmt.Errorf("%w: %s has no row", ErrMismatch, r.Handle)
		}
		if e.Runs != r.Best.Runs || e.BallsFaced != r.Best.BallsFaced {
			return fmt.Errorf("%w: %s ranked %d off %d, best was %d off %d",
				ErrMismatch, r.Handle, e.Runs, e.BallsFaced, r.Best.Runs, r.Best.BallsFaced)
		}
		if e.Player != r.Player {
			return fmt.Errorf("%w: %s ranked as %q, played as %q", ErrMismatch, r.Handle, e.Player, r.Player)
		}
	}
	return nil
}

// verifyOrdering checks that rows are sorted by runs, then fewer balls, then
// handle, and that ranks are competition ranks.
func verifyOrdering(rows []types.Entry) error {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if !ordered(prev, cur) {
			return fmt.Errorf("%w: %s (%d off %d) listed before %s (%d off %d)",
				ErrMismatch, prev.Handle, prev.Runs, prev.BallsFaced, cur.Handle, cur.Runs, cur.BallsFaced)
		}
		tied := prev.Runs == cur.Runs && prev.BallsFaced == cur.BallsFaced
		switch {
		case tied && cur.Rank != prev.Rank:
			return fmt.Errorf("%w: tied %s and %s ranked %d and %d", ErrMismatch, prev.Handle, cur.Handle, prev.Rank, cur.Rank)
		case !tied && cur.Rank != i+1:
			return fmt.Errorf("%w: %s at position %d ranked %d", ErrMismatch, cur.Handle, i+1, cur.Rank)
		}
	}
	if len(rows) > 0 && rows[0].Rank != 1 {
		return fmt.Errorf("%w: leader ranked %d", ErrMismatch, rows[0].Rank)
	}
	return nil
}

func ordered(a, b types.Entry) bool {
	if a.Runs != b.Runs {
		return a.Runs > b.Runs
	}
	if a.BallsFaced != b.BallsFaced {
		return a.BallsFaced < b.BallsFaced
	}
	return a.Handle <= b.Handle
}

// displayLeaderboard prints the top rows.
func displayLeaderboard(rows []types.Entry) {
	log.Printf("🏆 Top %d on the leaderboard:", len(rows))
	for _, e := range rows {
		log.Printf("   %d. %-16s %-8s %3d off %d (SR %s)", e.Rank, e.Handle, e.Player, e.Runs, e.BallsFaced, e.StrikeRate.String())
	}
}
