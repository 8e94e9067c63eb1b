// Package config defines league configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database holding competitors and match records.
	DBPath string `koanf:"db_path"`

	// Competitors lists identifiers to enter; entries ending in
	// CheckpointSuffix are learned agents, the rest are scripted bots.
	Competitors []string `koanf:"competitors"`

	// CheckpointSuffix marks an identifier as a learned checkpoint.
	CheckpointSuffix string `koanf:"checkpoint_suffix"`

	// NumMatches is the per-pair game budget; each direction plays NumMatches/2.
	NumMatches int `koanf:"num_matches"`

	// PartialObs toggles partial observability in the simulator.
	PartialObs bool `koanf:"partial_obs"`

	// NumEnvs is the number of parallel games per batch.
	NumEnvs int `koanf:"num_envs"`

	// RoundsPerGame is the length of one episode in the local simulator.
	RoundsPerGame int `koanf:"rounds_per_game"`

	// Seed drives pairing shuffles and stochastic bots; 0 picks a time-based seed.
	Seed int64 `koanf:"seed"`

	// SampleSize bounds how many incumbents each newcomer meets once the league has history.
	SampleSize int `koanf:"sample_size"`

	// Rating model parameters.
	RatingMu        float64 `koanf:"rating_mu"`
	RatingSigma     float64 `koanf:"rating_sigma"`
	RatingBeta      float64 `koanf:"rating_beta"`
	RatingTau       float64 `koanf:"rating_tau"`
	DrawProbability float64 `koanf:"draw_probability"`

	// DryRun plays against an in-memory copy of the database and writes nothing back.
	DryRun bool `koanf:"dry_run"`

	// MetricsTextfile, when set, receives a Prometheus text dump after a run.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Addr configures the read-only HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		DBPath:              "league.db",
		Competitors:         []string{"randomAI", "passiveAI", "cycleAI", "counterAI"},
		CheckpointSuffix:    ".pt",
		NumMatches:          10,
		PartialObs:          false,
		NumEnvs:             1,
		RoundsPerGame:       9,
		Seed:                0,
		SampleSize:          4,
		RatingMu:            25.0,
		RatingSigma:         25.0 / 3.0,
		RatingBeta:          25.0 / 6.0,
		RatingTau:           25.0 / 300.0,
		DrawProbability:     0.10,
		Addr:                ":9080",
		MaxLeaderboardLimit: 100,
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.NumMatches < 2:
		return fmt.Errorf("%w: num_matches must be at least 2, got %d", ErrInvalidConfig, c.NumMatches)
	case c.NumEnvs < 1:
		return fmt.Errorf("%w: num_envs must be positive, got %d", ErrInvalidConfig, c.NumEnvs)
	case c.RoundsPerGame < 1:
		return fmt.Errorf("%w: rounds_per_game must be positive, got %d", ErrInvalidConfig, c.RoundsPerGame)
	case c.SampleSize < 1:
		return fmt.Errorf("%w: sample_size must be positive, got %d", ErrInvalidConfig, c.SampleSize)
	case c.RatingSigma <= 0 || c.RatingBeta <= 0 || c.RatingTau < 0:
		return fmt.Errorf("%w: rating_sigma and rating_beta must be positive, rating_tau non-negative", ErrInvalidConfig)
	case c.DrawProbability < 0 || c.DrawProbability >= 1:
		return fmt.Errorf("%w: draw_probability must be in [0,1), got %g", ErrInvalidConfig, c.DrawProbability)
	case c.CheckpointSuffix == "":
		return fmt.Errorf("%w: checkpoint_suffix must not be empty", ErrInvalidConfig)
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Competitors))
	for _, id := range c.Competitors {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty competitor identifier", ErrInvalidConfig)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: competitor %q listed twice", ErrInvalidConfig, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
