package repository

import (
	"time"

	"github.com/okian/league/pkg/logger"
)

type settings struct {
	now    func() time.Time
	logger logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a registry.
type Option func(*settings)

// WithClock overrides the clock used to stamp records that carry no CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
