// Package types contains the views the service hands to its API.
package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/crease/internal/domain/model"
)

// Entry is a leaderboard row as served to clients.
type Entry struct {
	Rank       int             `json:"rank"`
	Handle     string          `json:"handle"`
	Player     string          `json:"player"`
	Runs       int             `json:"runs"`
	BallsFaced int             `json:"balls_faced"`
	StrikeRate decimal.Decimal `json:"strike_rate"`
	Fours      int             `json:"fours"`
	Sixes      int             `json:"sixes"`
	Dismissed  bool            `json:"dismissed"`
	FinishedAt time.Time       `json:"finished_at"`
}

// SessionView is a read-only snapshot of one session.
type SessionView struct {
	ID           string               `json:"id"`
	Handle       string               `json:"handle"`
	Player       model.PlayerProfile  `json:"player"`
	Phase        model.Phase          `json:"phase"`
	State        model.InningsState   `json:"state"`
	LastDelivery *model.DeliveryEvent `json:"last_delivery,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
}

// SwipeStatus tells a client what became of a submitted gesture.
type SwipeStatus string

// Swipe statuses.
const (
	// SwipeDelivered means the gesture was played as the next delivery.
	SwipeDelivered SwipeStatus = "delivered"
	// SwipeIgnored means the gesture was too short; nothing was consumed.
	SwipeIgnored SwipeStatus = "no_swipe"
	// SwipeDuplicate means the swipe id was already played; Delivery is the
	// session's latest delivery.
	SwipeDuplicate SwipeStatus = "duplicate"
)

// SwipeResult is the answer to a swipe submission.
type SwipeResult struct {
	Status   SwipeStatus          `json:"status"`
	Delivery *model.DeliveryEvent `json:"delivery,omitempty"`
	Session  SessionView          `json:"session"`
}
