// Package repository keeps the leaderboard of best innings per handle.
package repository

import (
	"context"
	"time"

	"github.com/okian/crease/internal/domain/model"
)

// Entry is one leaderboard row: a handle's best innings.
type Entry struct {
	Rank       int       `json:"rank"`
	Handle     string    `json:"handle"`
	Player     string    `json:"player"`
	Runs       int       `json:"runs"`
	BallsFaced int       `json:"balls_faced"`
	Fours      int       `json:"fours"`
	Sixes      int       `json:"sixes"`
	Dismissed  bool      `json:"dismissed"`
	SessionID  string    `json:"session_id"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store provides read/write access to the leaderboard.
//
// Ordering: runs DESC, balls faced ASC, handle ASC. Handles with equal runs
// and balls faced share a rank.
type Store interface {
	// RecordBest keeps r if it beats the handle's current best.
	// Returns true if the leaderboard changed.
	RecordBest(ctx context.Context, r model.InningsResult) (bool, error)

	// Rank returns the handle's row. Returns ErrNotFound if the handle is unknown.
	Rank(ctx context.Context, handle string) (Entry, error)

	// TopN returns up to n rows in leaderboard order.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of ranked handles.
	Count(ctx context.Context) int

	Close() error
}
