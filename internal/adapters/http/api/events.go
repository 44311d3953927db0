package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// EventsHandler upgrades requests to the session event stream.
type EventsHandler struct {
	deps SessionDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps SessionDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleStream handles GET /sessions/{id}/events requests.
func (h *EventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_events"
	err := h.deps.Subscribe(w, r, mux.Vars(r)["id"])
	if err == nil {
		return
	}
	// A failed upgrade has already been answered by the upgrader.
	if status, code := classify(err); status != http.StatusInternalServerError {
		writeError(w, status, code, Wrap(op, err))
	}
}
