// Package shot decides what happens when a swing meets the ball.
package shot

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/pkg/logger"
)

// Balancing constants.
const (
	baseHitChance   = 0.7
	timingHitBonus  = 0.2
	idealStrength   = 0.7
	strengthPenalty = 0.5
	minHitChance    = 0.2
	maxHitChance    = 0.95

	baseOutChance    = 0.1
	techniqueOutDiv  = 1000.0
	powerScale       = 25.0
	sidewaysScale    = 0.6
	liftBonus        = 8.0
	deflectionSpread = 0.15 * math.Pi
	forwardSpeedBase = 10.0
	forwardSpeedVar  = 5.0

	// BoundaryDistance is the travel at which a shot becomes a four or six.
	BoundaryDistance = 40.0
	// SixApex is the carry height above which a boundary is a six.
	SixApex      = 0.5
	runsPerMeter = 0.1
	maxRunning   = 3
)

// RandomSource supplies uniform draws in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithFlightModel replaces the ball-flight simulation.
func WithFlightModel(f FlightModel) Option {
	return func(r *Resolver) {
		if f != nil {
			r.flight = f
		}
	}
}

// WithLogger sets the logger used for per-shot debug output.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver turns a swing into a shot outcome. It holds no per-shot state and
// is safe for concurrent use as long as each caller brings its own RandomSource.
type Resolver struct {
	flight FlightModel
	logger logger.Logger
}

// NewResolver creates a resolver with the ballistic flight model.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{flight: Ballistic{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HitChance is the probability that the bat makes contact.
func HitChance(p *model.PlayerProfile, strength float64) float64 {
	c := baseHitChance + timingHitBonus*p.TimingFactor() - strengthPenalty*math.Abs(strength-idealStrength)
	return math.Max(minHitChance, math.Min(maxHitChance, c))
}

// OutChance is the probability that a struck ball still gets the batter out.
func OutChance(p *model.PlayerProfile) float64 {
	return baseOutChance - float64(p.Technique)/techniqueOutDiv
}

// ShotPower is the launch speed contributed by the batter.
func ShotPower(p *model.PlayerProfile, strength float64) float64 {
	return strength * p.PowerFactor() * p.TimingFactor() * powerScale
}

// Resolve plays one swing. Draws from rng, in order: contact, deflection
// angle, forward speed, technique dismissal.
func (r *Resolver) Resolve(ctx context.Context, p *model.PlayerProfile, s model.Swing, rng RandomSource) (model.ShotOutcome, error) {
	if err := p.Validate(); err != nil {
		return model.ShotOutcome{}, err
	}
	if math.IsNaN(s.Strength) || s.Strength < 0 || s.Strength > 1 {
		return model.ShotOutcome{}, fmt.Errorf("%w: swing strength %v outside [0,1]", model.ErrInvalidInput, s.Strength)
	}
	if math.IsNaN(s.DirectionX) || math.IsNaN(s.DirectionY) {
		return model.ShotOutcome{}, fmt.Errorf("%w: swing direction is not a number", model.ErrInvalidInput)
	}
	if rng == nil {
		return model.ShotOutcome{}, fmt.Errorf("%w: missing random source", model.ErrInvalidInput)
	}

	hit := HitChance(p, s.Strength)
	if rng.Float64() >= hit {
		r.debug(ctx, "swing missed", logger.Float64("hitChance", hit))
		return model.NewOutcome(model.MissOut, 0, 0), nil
	}

	power := ShotPower(p, s.Strength)
	angle := rng.Float64()*deflectionSpread - deflectionSpread/2
	sin, cos := math.Sincos(angle)
	dirX := s.DirectionX*cos - s.DirectionY*sin
	dirY := s.DirectionX*sin + s.DirectionY*cos

	traj := r.flight.Simulate(Launch{
		VX: dirX * power * sidewaysScale,
		VY: dirY*power + liftBonus,
		VZ: forwardSpeedBase + rng.Float64()*forwardSpeedVar,
	})

	if rng.Float64() < OutChance(p) {
		r.debug(ctx, "edged and caught", logger.Float64("distance", traj.Distance))
		return model.NewOutcome(model.TechniqueOut, traj.Distance, traj.Apex), nil
	}

	kind := classify(traj)
	r.debug(ctx, "shot resolved",
		logger.String("kind", kind.String()),
		logger.Float64("distance", traj.Distance),
		logger.Float64("apex", traj.Apex),
		logger.Int("bounces", traj.Bounces),
	)
	return model.NewOutcome(kind, traj.Distance, traj.Apex), nil
}

func classify(t Trajectory) model.OutcomeKind {
	if t.Distance >= BoundaryDistance {
		if t.Apex > SixApex {
			return model.Six
		}
		return model.Four
	}
	runs := int(math.Floor(t.Distance * runsPerMeter))
	return model.RunningKind(max(0, min(runs, maxRunning)))
}

func (r *Resolver) debug(ctx context.Context, msg string, fields ...logger.Field) {
	if r.logger != nil {
		r.logger.Debug(ctx, msg, fields...)
	}
}
