package innings

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/crease/internal/domain/model"
)

var hundred = decimal.NewFromInt(100)

// Summary is the end-of-innings scorecard.
type Summary struct {
	Player     string              `json:"player"`
	PlayerName string              `json:"player_name"`
	Runs       int                 `json:"runs"`
	BallsFaced int                 `json:"balls_faced"`
	StrikeRate decimal.Decimal     `json:"strike_rate"`
	Fours      int                 `json:"fours"`
	Sixes      int                 `json:"sixes"`
	Dismissed  bool                `json:"dismissed"`
	Complete   bool                `json:"complete"`
	Message    string              `json:"message"`
	ShareText  string              `json:"share_text"`
	Deliveries []model.ShotOutcome `json:"deliveries"`
}

// Summarize builds the scorecard of an innings, finished or not.
func Summarize(p model.PlayerProfile, s model.InningsState) Summary {
	sr := StrikeRate(s.TotalRuns, s.BallsFaced())
	return Summary{
		Player:     p.Key,
		PlayerName: p.Name,
		Runs:       s.TotalRuns,
		BallsFaced: s.BallsFaced(),
		StrikeRate: sr,
		Fours:      s.Count(model.Four),
		Sixes:      s.Count(model.Six),
		Dismissed:  s.Dismissed(),
		Complete:   s.IsOver,
		Message:    PerformanceMessage(s.TotalRuns, sr),
		ShareText:  ShareText(s.TotalRuns),
		Deliveries: s.Clone().History,
	}
}

// StrikeRate is runs per hundred balls, rounded to two places. Zero when no
// ball was faced.
func StrikeRate(runs, balls int) decimal.Decimal {
	if balls <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(runs)).Mul(hundred).Div(decimal.NewFromInt(int64(balls))).Round(2)
}

// PerformanceMessage grades an innings.
func PerformanceMessage(runs int, strikeRate decimal.Decimal) string {
	switch {
	case runs >= 30 && strikeRate.GreaterThanOrEqual(decimal.NewFromInt(200)):
		return "Phenomenal batting! You're the next superstar!"
	case runs >= 24:
		return "Outstanding performance! True cricket legend material!"
	case runs >= 18:
		return "Excellent batting! You've got serious talent!"
	case runs >= 12:
		return "Good show! Keep honing those skills!"
	default:
		return "Nice start! Practice makes perfect!"
	}
}

// ShareText is the line a batter posts to brag about a score.
func ShareText(runs int) string {
	return fmt.Sprintf("Just scored %d runs in Crease! Can you beat my score?", runs)
}

// Text renders the scorecard as plain text, one line per delivery.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", s.PlayerName, s.Player)
	for i, d := range s.Deliveries {
		fmt.Fprintf(&b, "  ball %d  %-13s %d\n", i+1, d.Kind, d.Runs)
	}
	status := "not out"
	if s.Dismissed {
		status = "out"
	}
	fmt.Fprintf(&b, "total %d (%d balls, %s)\n", s.Runs, s.BallsFaced, status)
	fmt.Fprintf(&b, "strike rate %s  fours %d  sixes %d\n", s.StrikeRate.StringFixed(2), s.Fours, s.Sixes)
	fmt.Fprintf(&b, "%s\n", s.Message)
	return b.String()
}
