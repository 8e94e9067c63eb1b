package service

import (
	"time"

	"github.com/okian/league/internal/domain/schedule"
	"github.com/okian/league/pkg/logger"
)

// Option applies a configuration option to the League.
type Option func(*League)

// WithLogger sets a custom logger for the league.
func WithLogger(l logger.Logger) Option {
	return func(s *League) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScheduler replaces the pairing scheduler.
func WithScheduler(sc *schedule.Scheduler) Option {
	return func(s *League) {
		if sc != nil {
			s.scheduler = sc
		}
	}
}

// WithNumMatches sets the per-pair game budget. Each direction plays half.
func WithNumMatches(n int) Option {
	return func(s *League) {
		s.numMatches = n
	}
}

// WithNumEnvs sets the number of parallel games per batch.
func WithNumEnvs(n int) Option {
	return func(s *League) {
		if n > 0 {
			s.numEnvs = n
		}
	}
}

// WithRoundsPerGame sets the episode length forwarded to the simulator.
func WithRoundsPerGame(n int) Option {
	return func(s *League) {
		if n > 0 {
			s.rounds = n
		}
	}
}

// WithPartialObs forwards the partial observability toggle to the simulator.
func WithPartialObs(on bool) Option {
	return func(s *League) {
		s.partialObs = on
	}
}

// WithSeed makes simulator seeding reproducible. Zero keeps a time-based seed.
func WithSeed(seed int64) Option {
	return func(s *League) {
		if seed != 0 {
			s.seed = seed
		}
	}
}

// WithCheckpointSuffix sets the suffix that marks learned competitors.
func WithCheckpointSuffix(suffix string) Option {
	return func(s *League) {
		s.suffix = suffix
	}
}

// WithClock overrides the clock used to stamp match records.
func WithClock(now func() time.Time) Option {
	return func(s *League) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(s *League) {
		s.runID = id
	}
}
