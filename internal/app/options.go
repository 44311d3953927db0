package service

import (
	"time"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/shot"
	"github.com/okian/crease/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of leaderboard workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the result queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many swipe ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAutoAdvance makes every session skip the DELIVERY_DONE wait.
func WithAutoAdvance(enabled bool) Option {
	return func(s *Service) {
		s.autoAdvance = enabled
	}
}

// WithPlayers replaces the selectable batters.
func WithPlayers(players []model.PlayerProfile) Option {
	return func(s *Service) {
		if len(players) > 0 {
			s.players = make(map[string]model.PlayerProfile, len(players))
			for _, p := range players {
				s.players[p.Key] = p
			}
		}
	}
}

// WithSeed seeds the shared random source. Zero seeds from the clock.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithRandomSource replaces the shared random source.
func WithRandomSource(rng shot.RandomSource) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithFlightModel replaces the ball-flight simulation.
func WithFlightModel(f shot.FlightModel) Option {
	return func(s *Service) {
		s.flight = f
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
