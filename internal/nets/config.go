package nets

import (
	"time"

	"github.com/okian/crease/internal/domain/innings"
)

// Config holds configuration for a nets run.
type Config struct {
	BaseURL string        // Base URL of the service
	Batters int           // Number of concurrent batters
	Innings int           // Innings played by each batter
	Players []string      // Player keys handed out round robin; empty uses GET /players
	Seed    int64         // Gesture seed; zero seeds from the clock
	Timeout time.Duration // HTTP request timeout
	Settle  time.Duration // How long to wait for the leaderboard to catch up
	Watch   bool          // Follow the first batter's event stream
	Copy    bool          // Copy the best share text to the clipboard
	Verbose bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	InningsPlayed   int
	Deliveries      int
	NoSwipes        int
	Duplicates      int
	Failures        int
	EventsWatched   int
	HandlesVerified int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// BatterResult is what one batter achieved across their innings.
type BatterResult struct {
	Handle  string
	Player  string
	Best    innings.Summary
	Card    string
	Innings int
}

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Batters <= 0 {
		c.Batters = DefaultBatters
	}
	if c.Innings <= 0 {
		c.Innings = DefaultInnings
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
}
