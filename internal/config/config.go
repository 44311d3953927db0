// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) builds a Config holding the defaults.
//   - Load(ctx) layers a YAML file and CREASE_ environment variables on top.
//   - Validate reports every problem wrapped in ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/crease/internal/domain/model"
)

// PlayerConfig describes one selectable batter.
type PlayerConfig struct {
	Name      string `koanf:"name"`
	Power     int    `koanf:"power"`
	Technique int    `koanf:"technique"`
	Timing    int    `koanf:"timing"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the finished-innings queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of leaderboard workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many swipe ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxSessions bounds the number of live sessions.
	MaxSessions int `koanf:"max_sessions"`

	// SessionTTLSeconds is how long an idle session is kept.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// RNGSeed seeds shot resolution. Zero seeds from the clock.
	RNGSeed int64 `koanf:"rng_seed"`

	// AutoAdvance skips the wait for POST /sessions/{id}/next.
	AutoAdvance bool `koanf:"auto_advance"`

	// Players maps a player key to its profile.
	Players map[string]PlayerConfig `koanf:"players"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         4,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		MaxSessions:         10_000,
		SessionTTLSeconds:   1800,
		Players: map[string]PlayerConfig{
			"virat": {Name: "Virat Kohli", Power: 92, Technique: 98, Timing: 95},
			"rohit": {Name: "Rohit Sharma", Power: 95, Technique: 92, Timing: 94},
		},
	}
}

// SessionTTL returns the idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// Profiles returns the configured players ordered by key.
func (c *Config) Profiles() []model.PlayerProfile {
	out := make([]model.PlayerProfile, 0, len(c.Players))
	for key, p := range c.Players {
		out = append(out, model.PlayerProfile{
			Key:       key,
			Name:      p.Name,
			Power:     p.Power,
			Technique: p.Technique,
			Timing:    p.Timing,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Validate checks every setting.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"queue_size", c.QueueSize},
		{"worker_count", c.WorkerCount},
		{"dedupe_size", c.DedupeSize},
		{"max_leaderboard_limit", c.MaxLeaderboardLimit},
		{"max_sessions", c.MaxSessions},
		{"session_ttl_seconds", c.SessionTTLSeconds},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if len(c.Players) == 0 {
		return fmt.Errorf("%w: at least one player is required", ErrInvalidConfig)
	}
	for _, p := range c.Profiles() {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: player %q: %v", ErrInvalidConfig, p.Key, err)
		}
	}
	return nil
}
