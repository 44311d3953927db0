// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/crease/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	PlayerDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the game API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	playersHandler     *PlayersHandler
	sessionsHandler    *SessionsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		playersHandler:     NewPlayersHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	route := func(path, name string, h http.HandlerFunc, methods ...string) {
		r.HandleFunc(path, MetricsMiddleware(h, name)).Methods(methods...)
	}

	route("/healthz", "healthz", s.healthHandler.HandleHealth, http.MethodGet)
	route("/stats", "stats", s.statsHandler.HandleStats, http.MethodGet)
	route("/players", "players", s.playersHandler.HandleListPlayers, http.MethodGet)

	route("/sessions", "sessions_create", s.sessionsHandler.HandleCreate, http.MethodPost)
	route("/sessions/{id}", "sessions_get", s.sessionsHandler.HandleGet, http.MethodGet)
	route("/sessions/{id}", "sessions_end", s.sessionsHandler.HandleEnd, http.MethodDelete)
	route("/sessions/{id}/swipes", "swipes", s.sessionsHandler.HandleSwipe, http.MethodPost)
	route("/sessions/{id}/next", "sessions_next", s.sessionsHandler.HandleNext, http.MethodPost)
	route("/sessions/{id}/reset", "sessions_reset", s.sessionsHandler.HandleReset, http.MethodPost)
	route("/sessions/{id}/scorecard", "scorecard", s.sessionsHandler.HandleScorecard, http.MethodGet)
	route("/sessions/{id}/events", "events", s.eventsHandler.HandleStream, http.MethodGet)

	route("/leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard, http.MethodGet)
	route("/rank/{handle}", "rank", s.rankHandler.HandleGetRank, http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
