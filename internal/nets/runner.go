package nets

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/okian/crease/pkg/logger"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// Run plays the configured innings against the service and verifies the
// leaderboard. It returns the batter with the best innings.
func Run(ctx context.Context, config *Config) (BatterResult, error) {
	config.Normalize()
	stats := &Stats{StartTime: time.Now()}
	lg := logger.Named("nets")

	lg.Info(ctx, "starting nets",
		logger.String("baseURL", config.BaseURL),
		logger.Int("batters", config.Batters),
		logger.Int("innings", config.Innings),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("watch", config.Watch))

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return BatterResult{}, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Pick the line-up
	players := config.Players
	if len(players) == 0 {
		profiles, err := client.Players(ctx)
		if err != nil {
			return BatterResult{}, fmt.Errorf("failed to list players: %w", err)
		}
		for _, p := range profiles {
			players = append(players, p.Key)
		}
	}
	if len(players) == 0 {
		return BatterResult{}, fmt.Errorf("no players to bat")
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Step 3: Play every batter concurrently
	results, err := playAll(ctx, config, client, players, seed, stats, lg)
	if err != nil {
		return BatterResult{}, err
	}

	// Step 4: Verify each handle's row and the ordering of the board
	rows, err := awaitRanks(ctx, client, results, config.Settle)
	if err != nil {
		return BatterResult{}, fmt.Errorf("rank retrieval failed: %w", err)
	}
	if err := verifyRanks(rows, results); err != nil {
		return BatterResult{}, err
	}
	stats.HandlesVerified = len(rows)

	board, err := client.Leaderboard(ctx, min(config.Batters, maxLeaderboardRows))
	if err != nil {
		return BatterResult{}, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyOrdering(board); err != nil {
		return BatterResult{}, err
	}
	displayLeaderboard(board)

	// Step 5: Show the best innings
	best := results[0]
	for _, r := range results[1:] {
		if better(r.Best.Runs, r.Best.BallsFaced, best.Best.Runs, best.Best.BallsFaced) {
			best = r
		}
	}
	log.Printf("🏏 Best innings by %s:\n%s", best.Handle, best.Card)

	if config.Copy {
		if err := copyToClipboard(best.Best.ShareText); err != nil {
			lg.Warn(ctx, "failed to copy share text", logger.Error(err))
		} else {
			log.Println("📋 Share text copied to clipboard")
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, lg, stats)
	return best, nil
}

// playAll runs one goroutine per batter. The first batter's session is
// watched over the websocket when config.Watch is set.
func playAll(ctx context.Context, config *Config, client *Client, players []string, seed int64, stats *Stats, lg logger.Logger) ([]BatterResult, error) {
	log.Printf("🏏 %d batters, %d innings each...", config.Batters, config.Innings)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		watchWG  sync.WaitGroup
	)
	results := make([]BatterResult, config.Batters)

	for i := 0; i < config.Batters; i++ {
		b := &batter{
			client:   client,
			gestures: NewGestures(seed + int64(i)),
			player:   players[i%len(players)],
			handle:   newHandle(),
			innings:  config.Innings,
			log:      lg,
		}

		var sessions chan string
		if config.Watch && i == 0 {
			sessions = make(chan string, 1)
			watchWG.Add(1)
			go func() {
				defer watchWG.Done()
				id, ok := <-sessions
				if !ok {
					return
				}
				seen, err := Watch(ctx, config.BaseURL, id, lg)
				if err != nil {
					lg.Warn(ctx, "event stream failed", logger.Error(err))
				}
				mu.Lock()
				for _, n := range seen {
					stats.EventsWatched += n
				}
				mu.Unlock()
				lg.Info(ctx, "event stream closed", logger.Any("frames", seen))
			}()
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sessions != nil {
				defer close(sessions)
			}
			res, err := b.play(ctx, sessions)

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			stats.InningsPlayed += res.Innings
			stats.Deliveries += b.counters.deliveries
			stats.NoSwipes += b.counters.noSwipes
			stats.Duplicates += b.counters.duplicates
			if err != nil {
				stats.Failures++
				if firstErr == nil {
					firstErr = err
				}
			}
		}(i)
	}

	wg.Wait()
	watchWG.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("batting failed: %w", firstErr)
	}
	log.Printf("✅ %d innings played, %d deliveries, %d ignored taps, %d replays",
		stats.InningsPlayed, stats.Deliveries, stats.NoSwipes, stats.Duplicates)
	return results, nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, lg logger.Logger, stats *Stats) {
	var inningsPerSecond float64
	if stats.Duration > 0 {
		inningsPerSecond = float64(stats.InningsPlayed) / stats.Duration.Seconds()
	}

	lg.Info(ctx, "final statistics",
		logger.Int("inningsPlayed", stats.InningsPlayed),
		logger.Int("deliveries", stats.Deliveries),
		logger.Int("noSwipes", stats.NoSwipes),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failures", stats.Failures),
		logger.Int("eventsWatched", stats.EventsWatched),
		logger.Int("handlesVerified", stats.HandlesVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("inningsPerSecond", inningsPerSecond))
}
