// Package service owns batting sessions and wires the innings engine to the
// leaderboard pipeline and the event stream.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	eventqueue "github.com/okian/crease/internal/adapters/mq/queue"
	workerpool "github.com/okian/crease/internal/adapters/mq/worker"
	"github.com/okian/crease/internal/adapters/repository"
	"github.com/okian/crease/internal/adapters/ws"
	"github.com/okian/crease/internal/domain/dedupe"
	"github.com/okian/crease/internal/domain/innings"
	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/shot"
	"github.com/okian/crease/internal/domain/types"
	"github.com/okian/crease/pkg/logger"
	"github.com/okian/crease/pkg/metrics"
)

const (
	defaultWorkerCount = 4
	defaultQueueSize   = 10000
	defaultDedupeSize  = 50000
	defaultMaxSessions = 10000
	defaultSessionTTL  = 30 * time.Minute
	maxHandleLength    = 32
	janitorInterval    = 15 * time.Second
)

type session struct {
	mu        sync.Mutex
	id        string
	handle    string
	ctrl      *innings.Controller
	startedAt time.Time
	lastSeen  time.Time
	last      *model.DeliveryEvent

	// recorded is set once the finished innings reached the queue; pending
	// holds a result the queue refused.
	recorded bool
	pending  *model.InningsResult
}

// Service implements the API dependencies for the batting game.
type Service struct {
	mu sync.RWMutex

	sessionsMu sync.RWMutex
	sessions   map[string]*session

	// Core components
	players     map[string]model.PlayerProfile
	resolver    *shot.Resolver
	flight      shot.FlightModel
	rng         shot.RandomSource
	leaderboard repository.Store
	deduper     dedupe.Deduper
	queue       *eventqueue.InMemoryQueue
	pool        *workerpool.Pool
	hub         *ws.Hub

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	maxSessions int
	sessionTTL  time.Duration
	autoAdvance bool
	seed        int64

	// State
	started bool
	stopCh  chan struct{}
	done    chan struct{}

	logger logger.Logger
	now    func() time.Time
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:    make(map[string]*session),
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		maxSessions: defaultMaxSessions,
		sessionTTL:  defaultSessionTTL,
		now:         time.Now,
	}
	WithPlayers(DefaultPlayers())(s)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting session service...")

	if s.rng == nil {
		seed := s.seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = newLockedSource(seed)
	}
	resolverOpts := []shot.Option{shot.WithLogger(s.logger.Named("shot"))}
	if s.flight != nil {
		resolverOpts = append(resolverOpts, shot.WithFlightModel(s.flight))
	}
	s.resolver = shot.NewResolver(resolverOpts...)

	s.leaderboard = repository.NewTreapStore(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.hub = ws.NewHub(ws.WithLogger(s.logger.Named("ws")))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.leaderboard,
		workerpool.WithPoolLogger(s.logger.Named("worker")),
	)
	s.pool.Start(ctx)

	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.janitor()

	s.started = true
	s.logger.Info(ctx, "session service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("sessionTTL", s.sessionTTL),
		logger.Int("players", len(s.players)),
	)
	return nil
}

// Stop flushes what it can to the leaderboard and shuts everything down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping session service...")

	close(s.stopCh)
	<-s.done

	for _, sess := range s.snapshotSessions() {
		sess.mu.Lock()
		if err := s.flushPending(ctx, sess); err != nil {
			s.logger.Warn(ctx, "dropping unrecorded innings on shutdown",
				logger.String("session", sess.id),
				logger.Error(err),
			)
		}
		sess.mu.Unlock()
	}

	s.hub.Close()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.leaderboard.Close(); err != nil {
		s.logger.Error(ctx, "leaderboard close", logger.Error(err))
	}

	s.sessionsMu.Lock()
	s.sessions = make(map[string]*session)
	s.sessionsMu.Unlock()
	metrics.UpdateActiveSessions(0)

	s.started = false
	s.logger.Info(ctx, "session service stopped")
}

// Players returns the selectable batters ordered by key.
func (s *Service) Players() []model.PlayerProfile {
	out := make([]model.PlayerProfile, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// StartSession opens a fresh innings for handle batting as playerKey.
func (s *Service) StartSession(ctx context.Context, playerKey, handle string) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	profile, err := s.player(playerKey)
	if err != nil {
		return types.SessionView{}, err
	}
	handle, err = normalizeHandle(handle)
	if err != nil {
		return types.SessionView{}, err
	}

	id := uuid.NewString()
	ctrl, err := innings.NewController(id, &profile, s.resolver, s.rng,
		innings.WithAutoAdvance(s.autoAdvance),
		innings.WithNotifier(s.hub),
		innings.WithLogger(s.logger.Named("innings")),
		innings.WithClock(s.now),
	)
	if err != nil {
		return types.SessionView{}, err
	}
	now := s.now()
	sess := &session{id: id, handle: handle, ctrl: ctrl, startedAt: now, lastSeen: now}

	s.sessionsMu.Lock()
	if len(s.sessions) >= s.maxSessions {
		s.sessionsMu.Unlock()
		return types.SessionView{}, ErrTooManySessions
	}
	s.sessions[id] = sess
	active := len(s.sessions)
	s.sessionsMu.Unlock()

	metrics.RecordSessionStarted()
	metrics.UpdateActiveSessions(active)
	s.logger.Info(ctx, "session started",
		logger.String("session", id),
		logger.String("handle", handle),
		logger.String("player", profile.Key),
	)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(sess), nil
}

// Session returns a snapshot of one session.
func (s *Service) Session(_ context.Context, id string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return s.view(sess), nil
}

// Swipe plays one delivery. An empty swipeID disables replay protection for
// the call and leaves the dedupe window untouched. A swipeID seen before for
// the session replays the latest delivery instead of bowling again.
func (s *Service) Swipe(ctx context.Context, id, swipeID string, g model.SwipeGesture) (types.SwipeResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SwipeResult{}, err
	}
	tracked := swipeID != ""
	key := dedupe.Key(id, swipeID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	if tracked && s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSwipeDuplicate()
		s.logger.Debug(ctx, "duplicate swipe", logger.String("session", id), logger.String("swipe", swipeID))
		res := types.SwipeResult{Status: types.SwipeDuplicate, Session: s.view(sess)}
		if sess.last != nil {
			last := *sess.last
			res.Delivery = &last
		}
		return res, nil
	}

	start := time.Now()
	ev, err := sess.ctrl.Swipe(ctx, g)
	if err != nil {
		if tracked {
			s.deduper.Unrecord(ctx, key)
		}
		if errors.Is(err, innings.ErrNoSwipe) {
			metrics.RecordSwipeIgnored()
			return types.SwipeResult{Status: types.SwipeIgnored, Session: s.view(sess)}, nil
		}
		return types.SwipeResult{}, err
	}
	metrics.RecordResolveLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordDelivery(ev.Outcome.Kind.String())
	sess.last = &ev

	s.logger.Debug(ctx, "delivery",
		logger.String("session", id),
		logger.Int("ball", ev.Ball),
		logger.String("outcome", ev.Outcome.Kind.String()),
		logger.Int("total", ev.State.TotalRuns),
	)

	if ev.State.IsOver {
		s.finish(ctx, sess, ev.State)
	}

	delivered := ev
	return types.SwipeResult{Status: types.SwipeDelivered, Delivery: &delivered, Session: s.view(sess)}, nil
}

// Advance completes a DELIVERY_DONE phase.
func (s *Service) Advance(ctx context.Context, id string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	phase, err := sess.ctrl.Advance(ctx)
	if err != nil {
		return types.SessionView{}, err
	}
	s.hub.Publish(ws.Message{Type: ws.TypePhase, SessionID: id, Phase: phase})
	return s.view(sess), nil
}

// Reset starts a new innings in the same session. An empty playerKey keeps
// the current batter. A finished innings the queue has not yet accepted
// blocks the reset with ErrBackpressure.
func (s *Service) Reset(ctx context.Context, id, playerKey string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	var profile *model.PlayerProfile
	if playerKey != "" {
		p, err := s.player(playerKey)
		if err != nil {
			return types.SessionView{}, err
		}
		profile = &p
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	if err := s.flushPending(ctx, sess); err != nil {
		return types.SessionView{}, err
	}
	if err := sess.ctrl.Reset(ctx, profile); err != nil {
		return types.SessionView{}, err
	}
	sess.last = nil
	sess.recorded = false

	_, state, phase := sess.ctrl.Snapshot()
	s.hub.Publish(ws.Message{Type: ws.TypeReset, SessionID: id, Phase: phase, State: &state})
	s.logger.Info(ctx, "session reset", logger.String("session", id))
	return s.view(sess), nil
}

// EndSession removes a session. Returns ErrBackpressure, leaving the session
// in place, if its finished innings still cannot be queued.
func (s *Service) EndSession(ctx context.Context, id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	if err := s.flushPending(ctx, sess); err != nil {
		sess.mu.Unlock()
		return err
	}
	sess.mu.Unlock()

	s.remove(id)
	s.logger.Info(ctx, "session ended", logger.String("session", id))
	return nil
}

// Scorecard summarizes the session's innings so far.
func (s *Service) Scorecard(_ context.Context, id string) (innings.Summary, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return innings.Summary{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	profile, state, _ := sess.ctrl.Snapshot()
	return innings.Summarize(profile, state), nil
}

// Subscribe streams the session's events over a websocket.
func (s *Service) Subscribe(w http.ResponseWriter, r *http.Request, id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sub, err := s.hub.Accept(w, r, id)
	if err != nil {
		return err
	}

	// Deliveries are published under sess.mu, so the hello snapshot and the
	// subscription see the same point in the innings.
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, state, phase := sess.ctrl.Snapshot()
	sess.lastSeen = s.now()
	sub.Start(ws.Message{Type: ws.TypeHello, SessionID: id, Phase: phase, State: &state})
	return nil
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries, err := s.leaderboard.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i := range entries {
		out[i] = toEntry(&entries[i])
	}
	return out, nil
}

// Rank returns the leaderboard row for handle.
func (s *Service) Rank(ctx context.Context, handle string) (types.Entry, error) {
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	e, err := s.leaderboard.Rank(ctx, handle)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(&e), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"maxSessions": s.maxSessions,
		"autoAdvance": s.autoAdvance,
	}

	if s.started {
		s.sessionsMu.RLock()
		active := len(s.sessions)
		s.sessionsMu.RUnlock()

		queueLen := s.queue.Len(ctx)
		ranked := s.leaderboard.Count(ctx)

		stats["activeSessions"] = active
		stats["queueLength"] = queueLen
		stats["rankedHandles"] = ranked
		stats["inningsRecorded"] = s.pool.Processed()
		stats["subscribers"] = s.hub.Count()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateActiveSessions(active)
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateLeaderboardSize(ranked)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) lookup(id string) (*session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.sessionsMu.RLock()
	sess, ok := s.sessions[id]
	s.sessionsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) player(key string) (model.PlayerProfile, error) {
	p, ok := s.players[key]
	if !ok {
		return model.PlayerProfile{}, fmt.Errorf("%w %q", ErrUnknownPlayer, key)
	}
	return p, nil
}

func normalizeHandle(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if n := utf8.RuneCountInString(handle); n == 0 || n > maxHandleLength {
		return "", fmt.Errorf("%w: handle must be 1 to %d characters", model.ErrInvalidInput, maxHandleLength)
	}
	return handle, nil
}

// finish queues the innings result once. sess.mu must be held.
func (s *Service) finish(ctx context.Context, sess *session, state model.InningsState) {
	if sess.recorded || sess.pending != nil {
		return
	}
	r := model.NewInningsResult(sess.id, sess.handle, sess.ctrl.Profile().Key, state, s.now())
	sess.pending = &r
	metrics.RecordInningsCompleted(r.Runs)
	s.logger.Info(ctx, "innings complete",
		logger.String("session", sess.id),
		logger.String("handle", sess.handle),
		logger.Int("runs", r.Runs),
		logger.Int("balls", r.BallsFaced),
		logger.Bool("dismissed", r.Dismissed),
	)
	if err := s.flushPending(ctx, sess); err != nil {
		s.logger.Warn(ctx, "innings result deferred", logger.String("session", sess.id), logger.Error(err))
	}
}

// flushPending hands a deferred result to the queue. sess.mu must be held.
func (s *Service) flushPending(ctx context.Context, sess *session) error {
	if sess.pending == nil {
		return nil
	}
	if err := s.queue.Enqueue(ctx, *sess.pending); err != nil {
		if errors.Is(err, eventqueue.ErrFull) {
			return fmt.Errorf("%w: %v", ErrBackpressure, err)
		}
		return err
	}
	sess.pending = nil
	sess.recorded = true
	return nil
}

func (s *Service) remove(id string) {
	s.sessionsMu.Lock()
	delete(s.sessions, id)
	active := len(s.sessions)
	s.sessionsMu.Unlock()

	s.hub.CloseSession(id)
	metrics.UpdateActiveSessions(active)
}

func (s *Service) snapshotSessions() []*session {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	out := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// janitor retries deferred results and expires idle sessions.
func (s *Service) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep(context.Background())
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.sessionTTL)
	for _, sess := range s.snapshotSessions() {
		sess.mu.Lock()
		flushErr := s.flushPending(ctx, sess)
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()

		if flushErr != nil || !idle {
			continue
		}
		s.remove(sess.id)
		metrics.RecordSessionExpired()
		s.logger.Info(ctx, "session expired", logger.String("session", sess.id))
	}
}

func toEntry(e *repository.Entry) types.Entry {
	return types.Entry{
		Rank:       e.Rank,
		Handle:     e.Handle,
		Player:     e.Player,
		Runs:       e.Runs,
		BallsFaced: e.BallsFaced,
		StrikeRate: innings.StrikeRate(e.Runs, e.BallsFaced),
		Fours:      e.Fours,
		Sixes:      e.Sixes,
		Dismissed:  e.Dismissed,
		FinishedAt: e.FinishedAt,
	}
}

func (s *Service) view(sess *session) types.SessionView {
	profile, state, phase := sess.ctrl.Snapshot()
	v := types.SessionView{
		ID:        sess.id,
		Handle:    sess.handle,
		Player:    profile,
		Phase:     phase,
		State:     state,
		StartedAt: sess.startedAt,
	}
	if sess.last != nil {
		last := *sess.last
		v.LastDelivery = &last
	}
	return v
}
