package api

import (
	"net/http"

	"github.com/okian/crease/internal/domain/model"
)

// PlayerDependencies lists the selectable batters.
type PlayerDependencies interface {
	Players() []model.PlayerProfile
}

// PlayersHandler handles player listing requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleListPlayers handles GET /players requests.
func (h *PlayersHandler) HandleListPlayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Players())
}
