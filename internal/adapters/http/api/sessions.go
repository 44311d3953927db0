package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/crease/internal/domain/innings"
	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/types"
)

const maxBodyBytes = 1 << 16

// SessionDependencies drives batting sessions.
type SessionDependencies interface {
	StartSession(ctx context.Context, player, handle string) (types.SessionView, error)
	Session(ctx context.Context, id string) (types.SessionView, error)
	EndSession(ctx context.Context, id string) error
	Swipe(ctx context.Context, id, swipeID string, g model.SwipeGesture) (types.SwipeResult, error)
	Advance(ctx context.Context, id string) (types.SessionView, error)
	Reset(ctx context.Context, id, player string) (types.SessionView, error)
	Scorecard(ctx context.Context, id string) (innings.Summary, error)
	Subscribe(w http.ResponseWriter, r *http.Request, id string) error
}

// createSessionRequest mirrors the OpenAPI schema for POST /sessions.
type createSessionRequest struct {
	Player string `json:"player"`
	Handle string `json:"handle"`
}

// swipeRequest mirrors the OpenAPI schema for POST /sessions/{id}/swipes.
// Coordinates are pointers so a missing field is told apart from zero.
type swipeRequest struct {
	SwipeID string   `json:"swipe_id"`
	StartX  *float64 `json:"start_x"`
	StartY  *float64 `json:"start_y"`
	EndX    *float64 `json:"end_x"`
	EndY    *float64 `json:"end_y"`
}

var errMissingCoordinates = errors.New("start_x, start_y, end_x and end_y are required")

func (req swipeRequest) gesture() (model.SwipeGesture, error) {
	if req.StartX == nil || req.StartY == nil || req.EndX == nil || req.EndY == nil {
		return model.SwipeGesture{}, errMissingCoordinates
	}
	return model.SwipeGesture{StartX: *req.StartX, StartY: *req.StartY, EndX: *req.EndX, EndY: *req.EndY}, nil
}

type resetRequest struct {
	Player string `json:"player"`
}

type endResponse struct {
	Status string `json:"status"`
}

// scorecardResponse adds the printable card to the summary.
type scorecardResponse struct {
	innings.Summary
	Card string `json:"card"`
}

// SessionsHandler handles session lifecycle and swipe requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, err := h.deps.StartSession(r.Context(), req.Player, req.Handle)
	if err != nil {
		fail(w, op, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	v, err := h.deps.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleEnd handles DELETE /sessions/{id} requests.
func (h *SessionsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	const op = "api.end_session"
	if err := h.deps.EndSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, endResponse{Status: "ended"})
}

// HandleSwipe handles POST /sessions/{id}/swipes requests.
func (h *SessionsHandler) HandleSwipe(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_swipe"
	var req swipeRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	g, err := req.gesture()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Swipe(r.Context(), mux.Vars(r)["id"], req.SwipeID, g)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleNext handles POST /sessions/{id}/next requests.
func (h *SessionsHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	const op = "api.next_delivery"
	v, err := h.deps.Advance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleReset handles POST /sessions/{id}/reset requests. The body is
// optional; without a player the current batter goes again.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_session"
	var req resetRequest
	if err := decode(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, err := h.deps.Reset(r.Context(), mux.Vars(r)["id"], req.Player)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleScorecard handles GET /sessions/{id}/scorecard requests. With
// ?format=text the printable card is returned as plain text.
func (h *SessionsHandler) HandleScorecard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scorecard"
	sum, err := h.deps.Scorecard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, op, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, sum.Text())
		return
	}
	writeJSON(w, http.StatusOK, scorecardResponse{Summary: sum, Card: sum.Text()})
}

// decode reads a bounded JSON body into v. An empty body is accepted only
// when optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
