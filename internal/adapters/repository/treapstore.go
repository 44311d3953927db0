package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// "less" means ranks earlier, so in-order traversal yields the leaderboard
// from best to worst. Node priorities come from a hash of the handle, which
// keeps the tree balanced in expectation and the shape deterministic.

type score struct {
	runs  int
	balls int
}

// better reports whether a ranks strictly ahead of b, ignoring handles.
func (a score) better(b score) bool {
	if a.runs != b.runs {
		return a.runs > b.runs
	}
	return a.balls < b.balls
}

type node struct {
	handle string
	score  score
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(a score, aHandle string, b score, bHandle string) bool {
	if a != b {
		return a.better(b)
	}
	return aHandle < bHandle
}

func priority(handle string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(handle))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, handle string, s score) *node {
	if n == nil {
		return &node{handle: handle, score: s, prio: priority(handle), size: 1}
	}
	if less(s, handle, n.score, n.handle) {
		n.left = insert(n.left, handle, s)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, handle, s)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, handle string, s score) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.handle == handle:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, handle, s)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, handle, s)
		}
	case less(s, handle, n.score, n.handle):
		n.left = deleteNode(n.left, handle, s)
	default:
		n.right = deleteNode(n.right, handle, s)
	}
	fix(n)
	return n
}

// countBetter returns the number of handles whose score beats s.
func countBetter(n *node, s score) int {
	count := 0
	for n != nil {
		if n.score.better(s) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit handles in leaderboard order.
func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.handle)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore is the in-memory leaderboard.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	byHandle map[string]model.InningsResult

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closeOnce             sync.Once
}

// NewTreapStore constructs a treap store and starts its metrics updater.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byHandle:              make(map[string]model.InningsResult),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func scoreOf(r model.InningsResult) score {
	return score{runs: r.Runs, balls: r.BallsFaced}
}

func validate(r model.InningsResult) error {
	switch {
	case strings.TrimSpace(r.Handle) == "":
		return fmt.Errorf("%w: missing handle", ErrInvalidEntry)
	case r.BallsFaced < 1 || r.BallsFaced > model.BallsPerInnings:
		return fmt.Errorf("%w: balls faced %d outside [1,%d]", ErrInvalidEntry, r.BallsFaced, model.BallsPerInnings)
	case r.Runs < 0 || r.Runs > r.BallsFaced*model.Six.Runs():
		return fmt.Errorf("%w: %d runs from %d balls", ErrInvalidEntry, r.Runs, r.BallsFaced)
	}
	return nil
}

// RecordBest implements Store.RecordBest in O(log n) expected time.
func (s *TreapStore) RecordBest(ctx context.Context, r model.InningsResult) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := validate(r); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return false, err
	}

	ns := scoreOf(r)
	s.mu.Lock()
	if old, ok := s.byHandle[r.Handle]; ok {
		if !ns.better(scoreOf(old)) {
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, r.Handle, scoreOf(old))
	}
	s.byHandle[r.Handle] = r
	s.root = insert(s.root, r.Handle, ns)
	count := len(s.byHandle)
	s.mu.Unlock()

	metrics.UpdateLeaderboardSize(count)
	return true, nil
}

// Rank returns the handle's row in O(log n) expected time.
func (s *TreapStore) Rank(ctx context.Context, handle string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byHandle[handle]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return toEntry(countBetter(s.root, scoreOf(r))+1, r), nil
}

// TopN returns the top n rows.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]string, 0, min(n, len(s.byHandle)))
	collectTopN(s.root, n, &handles)

	out := make([]Entry, 0, len(handles))
	for i, h := range handles {
		r := s.byHandle[h]
		rank := i + 1
		if i > 0 && scoreOf(s.byHandle[handles[i-1]]) == scoreOf(r) {
			rank = out[i-1].Rank
		}
		out = append(out, toEntry(rank, r))
	}
	return out, nil
}

// Count returns the number of ranked handles.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHandle)
}

// Close stops the metrics updater. Safe to call more than once.
func (s *TreapStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateLeaderboardSize(s.Count(ctx))
			}
		}
	}()
}

func toEntry(rank int, r model.InningsResult) Entry {
	return Entry{
		Rank:       rank,
		Handle:     r.Handle,
		Player:     r.PlayerKey,
		Runs:       r.Runs,
		BallsFaced: r.BallsFaced,
		Fours:      r.Fours,
		Sixes:      r.Sixes,
		Dismissed:  r.Dismissed,
		SessionID:  r.SessionID,
		FinishedAt: r.FinishedAt,
	}
}
