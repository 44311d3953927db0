package innings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/shot"
	"github.com/okian/crease/internal/domain/swipe"
	"github.com/okian/crease/pkg/logger"
)

// Notifier receives a snapshot after every delivery. Delivery is
// best-effort: a failing notifier never affects the innings.
type Notifier interface {
	Notify(ctx context.Context, ev model.DeliveryEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev model.DeliveryEvent)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, ev model.DeliveryEvent) { f(ctx, ev) }

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithAutoAdvance moves straight past DELIVERY_DONE without waiting for Advance.
func WithAutoAdvance(enabled bool) Option {
	return func(c *Controller) {
		c.autoAdvance = enabled
	}
}

// WithNotifier adds a delivery listener.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifiers = append(c.notifiers, n)
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source stamped on events.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns one innings and its delivery phase. At most one delivery is
// resolved at a time.
type Controller struct {
	mu        sync.Mutex
	sessionID string
	profile   model.PlayerProfile
	state     model.InningsState
	phase     model.Phase

	resolver    Resolver
	rng         shot.RandomSource
	notifiers   []Notifier
	autoAdvance bool
	logger      logger.Logger
	now         func() time.Time
}

// NewController starts an innings for profile, awaiting the first swipe.
func NewController(sessionID string, profile *model.PlayerProfile, r Resolver, rng shot.RandomSource, opts ...Option) (*Controller, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if r == nil || rng == nil {
		return nil, fmt.Errorf("%w: resolver and random source are required", model.ErrInvalidInput)
	}
	c := &Controller{
		sessionID: sessionID,
		profile:   *profile,
		state:     model.NewInningsState(),
		phase:     model.AwaitingSwipe,
		resolver:  r,
		rng:       rng,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Swipe plays one delivery from a raw gesture.
func (c *Controller) Swipe(ctx context.Context, g model.SwipeGesture) (model.DeliveryEvent, error) {
	if err := swipe.Validate(g); err != nil {
		return model.DeliveryEvent{}, err
	}

	c.mu.Lock()
	if c.phase != model.AwaitingSwipe {
		phase := c.phase
		c.mu.Unlock()
		return model.DeliveryEvent{}, fmt.Errorf("%w: swipe not accepted in phase %s", model.ErrIllegalState, phase)
	}

	s, ok := swipe.Interpret(g)
	if !ok {
		c.mu.Unlock()
		return model.DeliveryEvent{}, ErrNoSwipe
	}

	c.phase = model.Resolving
	next, out, err := Play(ctx, c.state, &c.profile, s, c.resolver, c.rng)
	if err != nil {
		c.phase = model.AwaitingSwipe
		c.mu.Unlock()
		return model.DeliveryEvent{}, err
	}
	c.state = next
	c.phase = model.DeliveryDone
	if c.autoAdvance {
		c.phase = c.afterDelivery()
	}

	ev := model.DeliveryEvent{
		SessionID: c.sessionID,
		Ball:      next.BallsFaced(),
		Outcome:   out,
		Banner:    out.Banner(),
		Cue:       model.CueFor(out.Kind),
		State:     next.Clone(),
		Phase:     c.phase,
		At:        c.now(),
	}
	notifiers := append([]Notifier(nil), c.notifiers...)
	c.mu.Unlock()

	c.notify(ctx, notifiers, ev)
	return ev, nil
}

// Advance completes the DELIVERY_DONE transition once presentation is done.
func (c *Controller) Advance(_ context.Context) (model.Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != model.DeliveryDone {
		return c.phase, fmt.Errorf("%w: nothing to advance in phase %s", model.ErrIllegalState, c.phase)
	}
	c.phase = c.afterDelivery()
	return c.phase, nil
}

// Reset discards the innings and starts a fresh one. A nil profile keeps the
// current batter.
func (c *Controller) Reset(_ context.Context, profile *model.PlayerProfile) error {
	if profile != nil {
		if err := profile.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if profile != nil {
		c.profile = *profile
	}
	c.state = model.NewInningsState()
	c.phase = model.AwaitingSwipe
	return nil
}

// AddNotifier registers a delivery listener.
func (c *Controller) AddNotifier(n Notifier) {
	if n == nil {
		return
	}
	c.mu.Lock()
	c.notifiers = append(c.notifiers, n)
	c.mu.Unlock()
}

// State returns a copy of the innings state.
func (c *Controller) State() model.InningsState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Phase returns the current delivery phase.
func (c *Controller) Phase() model.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Profile returns the batter facing this innings.
func (c *Controller) Profile() model.PlayerProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Snapshot returns profile, state and phase read under one lock.
func (c *Controller) Snapshot() (model.PlayerProfile, model.InningsState, model.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile, c.state.Clone(), c.phase
}

// afterDelivery must be called with c.mu held.
func (c *Controller) afterDelivery() model.Phase {
	if c.state.IsOver {
		return model.InningsOver
	}
	return model.AwaitingSwipe
}

func (c *Controller) notify(ctx context.Context, notifiers []Notifier, ev model.DeliveryEvent) {
	for _, n := range notifiers {
		func() {
			defer func() {
				if r := recover(); r != nil && c.logger != nil {
					c.logger.Error(ctx, "delivery listener panicked",
						logger.String("session", c.sessionID),
						logger.Any("panic", r),
					)
				}
			}()
			n.Notify(ctx, ev)
		}()
	}
}
