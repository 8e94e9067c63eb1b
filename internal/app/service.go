// Package service runs league tournaments: it registers competitors, builds
// the schedule, plays every fixture and commits the rating updates.
package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/okian/league/internal/adapters/policy"
	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/adapters/simulator"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/internal/domain/schedule"
	"github.com/okian/league/internal/match"
	"github.com/okian/league/pkg/logger"
	"github.com/okian/league/pkg/metrics"
)

const (
	defaultNumMatches = 10
	defaultNumEnvs    = 1
	defaultRounds     = 9
	defaultSuffix     = ".pt"
)

// RunSummary describes one completed (or aborted) tournament invocation.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Bootstrap bool          `json:"bootstrap"`
	Newcomers []string      `json:"newcomers"`
	Fixtures  int           `json:"fixtures"`
	Played    int           `json:"played"`
	Games     int           `json:"games"`
	Duration  time.Duration `json:"duration"`
}

// League schedules and plays tournaments against one registry.
// It is not safe for concurrent use; batches run one after another.
type League struct {
	registry   repository.Registry
	model      *rating.Model
	simulators simulator.Factory
	policies   policy.Loader
	scheduler  *schedule.Scheduler

	numMatches int
	numEnvs    int
	rounds     int
	partialObs bool
	seed       int64
	suffix     string
	runID      string

	now    func() time.Time
	logger logger.Logger
}

// New constructs a League. The scheduler defaults to one seeded like the league.
func New(reg repository.Registry, m *rating.Model, sims simulator.Factory, policies policy.Loader, opts ...Option) (*League, error) {
	if reg == nil || m == nil || sims == nil || policies == nil {
		return nil, ErrMissingBackend
	}
	s := &League{
		registry:   reg,
		model:      m,
		simulators: sims,
		policies:   policies,
		numMatches: defaultNumMatches,
		numEnvs:    defaultNumEnvs,
		rounds:     defaultRounds,
		seed:       time.Now().UnixNano(),
		suffix:     defaultSuffix,
		now:        time.Now,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.numMatches < 2 {
		return nil, fmt.Errorf("%w: num matches %d leaves no games per direction", ErrInvalidOption, s.numMatches)
	}
	if s.scheduler == nil {
		s.scheduler = schedule.New(schedule.WithSeed(s.seed))
	}
	return s, nil
}

// Run enters identifiers into the league and plays the resulting schedule.
// A league without history plays a full round robin over every registered
// competitor. Otherwise newcomers play a gauntlet against a sample of the
// registered incumbents, and a run with no newcomers replays the round robin
// among the listed competitors.
// The first failing batch aborts the run; batches committed before it stay.
func (s *League) Run(ctx context.Context, identifiers []string) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{RunID: s.runID}
	if summary.RunID == "" {
		summary.RunID = uuid.NewString()
	}

	hadHistory, err := s.registry.HasHistory(ctx)
	if err != nil {
		return summary, err
	}

	listed, newcomers, err := s.enter(ctx, identifiers)
	if err != nil {
		return summary, err
	}
	for _, c := range newcomers {
		summary.Newcomers = append(summary.Newcomers, c.Name)
	}
	roster, err := s.registry.List(ctx)
	if err != nil {
		return summary, err
	}

	var fixtures []model.Fixture
	switch {
	case !hadHistory:
		summary.Bootstrap = true
		fixtures = s.scheduler.Bootstrap(roster)
	case len(newcomers) > 0:
		fixtures = s.scheduler.Extend(newcomers, incumbents(roster, newcomers))
	default:
		fixtures = s.scheduler.Bootstrap(listed)
	}
	summary.Fixtures = len(fixtures)

	s.logger.Info(ctx, "tournament started",
		logger.String("run_id", summary.RunID),
		logger.Bool("bootstrap", summary.Bootstrap),
		logger.Int("competitors", len(roster)),
		logger.Int("newcomers", len(newcomers)),
		logger.Int("fixtures", len(fixtures)),
		logger.Int("games_per_fixture", s.numMatches/2),
	)

	for i, f := range fixtures {
		metrics.UpdateFixturesPending(len(fixtures) - i)
		rec, err := s.playFixture(ctx, summary.RunID, i, f)
		if err != nil {
			summary.Duration = time.Since(start)
			metrics.RecordErrorByComponent("league", "batch")
			s.logger.Error(ctx, "tournament aborted",
				logger.String("run_id", summary.RunID),
				logger.String("fixture", f.String()),
				logger.Int("played", summary.Played),
				logger.Error(err),
			)
			return summary, fmt.Errorf("fixture %s: %w", f, err)
		}
		summary.Played++
		summary.Games += rec.Games()
	}
	metrics.UpdateFixturesPending(0)

	summary.Duration = time.Since(start)
	s.logger.Info(ctx, "tournament finished",
		logger.String("run_id", summary.RunID),
		logger.Int("fixtures", summary.Played),
		logger.Int("games", summary.Games),
		logger.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// enter upserts every identifier. Existing names keep their rating.
func (s *League) enter(ctx context.Context, identifiers []string) (listed, newcomers []model.Competitor, err error) {
	seen := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		c, err := model.ParseCompetitor(id, s.suffix, s.model.Default())
		if err != nil {
			return nil, nil, err
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true

		stored, created, err := s.registry.Upsert(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		listed = append(listed, stored)
		if created {
			newcomers = append(newcomers, stored)
		}
		s.logger.Debug(ctx, "competitor entered",
			logger.String("name", stored.Name),
			logger.String("kind", string(stored.Kind)),
			logger.Bool("created", created),
			logger.String("rating", stored.Rating.String()),
		)
	}
	if len(listed) == 0 {
		return nil, nil, ErrNoCompetitors
	}
	return listed, newcomers, nil
}

// playFixture runs one batch and commits its ratings and record.
func (s *League) playFixture(ctx context.Context, runID string, index int, f model.Fixture) (model.MatchRecord, error) {
	start := time.Now()

	// ratings moved since the schedule was built
	challenger, err := s.registry.Get(ctx, f.Challenger.Name)
	if err != nil {
		return model.MatchRecord{}, err
	}
	defender, err := s.registry.Get(ctx, f.Defender.Name)
	if err != nil {
		return model.MatchRecord{}, err
	}
	f = model.Fixture{Challenger: challenger, Defender: defender}

	var policies [2]policy.Policy
	for i, c := range []model.Competitor{challenger, defender} {
		ref, ok := c.Learned()
		if !ok {
			continue
		}
		if policies[i], err = s.policies.Load(ctx, ref); err != nil {
			return model.MatchRecord{}, fmt.Errorf("%w: %w", match.ErrPolicy, err)
		}
	}

	seed := rand.New(rand.NewSource(s.seed + int64(index))).Int63() //nolint:gosec // simulator seeding
	sim, err := s.simulators.New(ctx, match.SimulatorConfig(f, s.numEnvs, s.rounds, s.partialObs, seed))
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: %w", match.ErrSimulatorFault, err)
	}
	defer func() { _ = sim.Close() }()

	runner, err := match.New(sim, f, policies, match.WithLogger(s.logger))
	if err != nil {
		return model.MatchRecord{}, err
	}
	outcomes, err := runner.Run(ctx, s.numMatches/2)
	if err != nil {
		return model.MatchRecord{}, err
	}

	for _, o := range outcomes {
		if challenger.Rating, defender.Rating, err = s.rate(challenger.Rating, defender.Rating, o); err != nil {
			return model.MatchRecord{}, err
		}
		metrics.RecordGame(o.String())
		metrics.RecordRatingUpdate()
	}

	rec, err := s.registry.CommitBatch(ctx, challenger, defender, model.MatchRecord{
		RunID:      runID,
		Challenger: challenger.Name,
		Defender:   defender.Name,
		Tally:      model.TallyOf(outcomes),
		CreatedAt:  s.now(),
	})
	if err != nil {
		return model.MatchRecord{}, err
	}

	metrics.RecordBatch(runner.Mode().String(), float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "batch committed",
		logger.String("challenger", challenger.Name),
		logger.String("defender", defender.Name),
		logger.String("mode", runner.Mode().String()),
		logger.Int("wins", rec.Wins),
		logger.Int("draws", rec.Draws),
		logger.Int("losses", rec.Losses),
		logger.String("challenger_rating", challenger.Rating.String()),
		logger.String("defender_rating", defender.Rating.String()),
	)
	return rec, nil
}

// rate applies one game from the challenger's perspective.
func (s *League) rate(challenger, defender rating.Rating, o model.Outcome) (rating.Rating, rating.Rating, error) {
	switch o {
	case model.Win:
		return s.model.Rate(challenger, defender, false)
	case model.Loss:
		d, c, err := s.model.Rate(defender, challenger, false)
		return c, d, err
	default:
		return s.model.Rate(challenger, defender, true)
	}
}

// incumbents is the registered roster without this run's newcomers.
func incumbents(roster, newcomers []model.Competitor) []model.Competitor {
	fresh := make(map[string]bool, len(newcomers))
	for _, c := range newcomers {
		fresh[c.Name] = true
	}
	var out []model.Competitor
	for _, c := range roster {
		if !fresh[c.Name] {
			out = append(out, c)
		}
	}
	return out
}
