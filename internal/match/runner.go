// Package match drives one batch of simulated games between two fixed sides
// and reports the outcomes from the challenger's perspective.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/league/internal/adapters/policy"
	"github.com/okian/league/internal/adapters/simulator"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/schedule"
	"github.com/okian/league/pkg/logger"
	"github.com/okian/league/pkg/metrics"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner plays one fixture on one simulator.
type Runner struct {
	sim      simulator.Simulator
	fixture  model.Fixture
	mode     schedule.Mode
	policies [2]policy.Policy
	logger   logger.Logger
}

// SimulatorConfig returns the simulator configuration for fixture. Learned
// sides are external; scripted sides are played by the simulator's bots.
func SimulatorConfig(f model.Fixture, games, rounds int, partialObs bool, seed int64) simulator.Config {
	cfg := simulator.Config{Games: games, Rounds: rounds, PartialObs: partialObs, Seed: seed}
	for i, c := range []model.Competitor{f.Challenger, f.Defender} {
		if strategy, ok := c.Scripted(); ok {
			cfg.Players[i] = simulator.Player{Strategy: strategy}
			continue
		}
		cfg.Players[i] = simulator.Player{External: true}
	}
	return cfg
}

// New builds a Runner. policies holds one entry per side and must be set
// exactly for the learned sides.
func New(sim simulator.Simulator, f model.Fixture, policies [2]policy.Policy, opts ...Option) (*Runner, error) {
	mode, err := schedule.SelectMode(f.Challenger.Kind, f.Defender.Kind)
	if err != nil {
		return nil, err
	}
	for i, c := range []model.Competitor{f.Challenger, f.Defender} {
		if _, learned := c.Learned(); learned && policies[i] == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPolicy, c.Name)
		}
		if c.Kind == model.KindScripted {
			policies[i] = nil
		}
	}

	r := &Runner{
		sim:      sim,
		fixture:  f,
		mode:     mode,
		policies: policies,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Mode returns the mode selected for the fixture.
func (r *Runner) Mode() schedule.Mode { return r.mode }

// Run plays until n games have finished and returns their outcomes in finish
// order. Games still in flight are discarded. Any fault aborts the batch and
// drops the outcomes collected so far.
func (r *Runner) Run(ctx context.Context, n int) ([]model.Outcome, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d games requested", ErrInvalidBatch, n)
	}
	start := time.Now()

	obs, err := r.sim.Reset(ctx)
	if err != nil {
		metrics.RecordSimulatorFault()
		return nil, fmt.Errorf("%w: reset: %w", ErrSimulatorFault, err)
	}
	slots := r.sim.Slots()
	assign := Assign(slots, [2]bool{r.policies[0] != nil, r.policies[1] != nil})

	r.logger.Debug(ctx, "batch started",
		logger.String("challenger", r.fixture.Challenger.Name),
		logger.String("defender", r.fixture.Defender.Name),
		logger.String("mode", r.mode.String()),
		logger.Int("games", n),
		logger.Int("slots", len(slots)),
	)

	outcomes := make([]model.Outcome, 0, n)
	steps := 0
	for len(outcomes) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		actions, err := r.actions(ctx, assign, obs, len(slots))
		if err != nil {
			return nil, err
		}

		res, err := r.sim.Step(ctx, actions)
		if err != nil {
			metrics.RecordSimulatorFault()
			metrics.RecordErrorByComponent("match", "simulator_fault")
			return nil, fmt.Errorf("%w: step %d: %w", ErrSimulatorFault, steps, err)
		}
		metrics.RecordSimulatorStep()
		steps++
		if len(res.Infos) != len(slots) {
			metrics.RecordSimulatorFault()
			return nil, fmt.Errorf("%w: step %d: %d infos for %d slots", ErrSimulatorFault, steps, len(res.Infos), len(slots))
		}

		for _, slot := range assign.Reporting() {
			if !res.Infos[slot].Done {
				continue
			}
			o, err := model.OutcomeFromCode(int(res.Infos[slot].Outcome))
			if err != nil {
				metrics.RecordSimulatorFault()
				return nil, fmt.Errorf("%w: step %d slot %d: %w", ErrSimulatorFault, steps, slot, err)
			}
			if assign.invert[slot] {
				o = o.Invert()
			}
			outcomes = append(outcomes, o)
			if len(outcomes) == n {
				break
			}
		}
		obs = res.Obs
	}

	r.logger.Debug(ctx, "batch finished",
		logger.String("challenger", r.fixture.Challenger.Name),
		logger.String("defender", r.fixture.Defender.Name),
		logger.Int("steps", steps),
		logger.Any("tally", model.TallyOf(outcomes)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return outcomes, nil
}

// actions builds the full action vector: policy decisions for controlled
// slots, NoopAction elsewhere.
func (r *Runner) actions(ctx context.Context, assign SlotAssignment, obs [][]float64, width int) ([]int, error) {
	actions := make([]int, width)
	for i := range actions {
		actions[i] = simulator.NoopAction
	}
	if r.mode == schedule.ModeScriptedVsScripted {
		return actions, nil
	}

	masks := r.sim.ActionMasks()
	for _, side := range []Side{Challenger, Defender} {
		p := r.policies[side]
		if p == nil || len(assign.Slots(side)) == 0 {
			continue
		}
		decided, err := p.Decide(ctx, gather(assign, side, obs), gather(assign, side, masks))
		if err != nil {
			metrics.RecordErrorByComponent("match", "policy")
			return nil, fmt.Errorf("%w: %s: %w", ErrPolicy, r.name(side), err)
		}
		if len(decided) != len(assign.Slots(side)) {
			return nil, fmt.Errorf("%w: %s returned %d actions for %d slots", ErrPolicy, r.name(side), len(decided), len(assign.Slots(side)))
		}
		scatter(assign, side, decided, actions)
	}
	return actions, nil
}

func (r *Runner) name(side Side) string {
	if side == Challenger {
		return r.fixture.Challenger.Name
	}
	return r.fixture.Defender.Name
}
