// Package local provides an in-process stand-in simulator: a vectorised
// rock-paper-scissors-spock-lizard duel played over a fixed number of rounds,
// with built-in scripted bots.
package local

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/okian/league/internal/adapters/simulator"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/pkg/logger"
)

// ObsSize is the length of one observation vector: own last move one-hot,
// opponent last move one-hot, episode progress.
const ObsSize = 2*NumMoves + 1

// Option applies a configuration option to the Factory.
type Option func(*Factory)

// WithLogger sets the factory logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// Factory builds Duel simulators.
type Factory struct {
	logger logger.Logger
}

var _ simulator.Factory = (*Factory)(nil)

// NewFactory constructs a Factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{logger: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New implements simulator.Factory.
func (f *Factory) New(ctx context.Context, cfg simulator.Config) (simulator.Simulator, error) {
	if cfg.Games < 1 || cfg.Rounds < 1 {
		return nil, fmt.Errorf("%w: games=%d rounds=%d", simulator.ErrInvalidConfig, cfg.Games, cfg.Rounds)
	}
	for i, p := range cfg.Players {
		if p.External {
			continue
		}
		if _, ok := bots[p.Strategy]; !ok {
			return nil, fmt.Errorf("%w: player %d %q", simulator.ErrUnknownStrategy, i+1, p.Strategy)
		}
	}

	d := &Duel{cfg: cfg, logger: f.logger}
	for g := 0; g < cfg.Games; g++ {
		external := false
		for p := 0; p < 2; p++ {
			if cfg.Players[p].External {
				d.slots = append(d.slots, simulator.Slot{Game: g, Player: p})
				external = true
			}
		}
		if !external {
			// observer slot so termination is still reported
			d.slots = append(d.slots, simulator.Slot{Game: g, Player: 0})
		}
	}
	d.logger.Debug(ctx, "duel simulator created",
		logger.Int("games", cfg.Games),
		logger.Int("slots", len(d.slots)),
		logger.Bool("partial_obs", cfg.PartialObs),
	)
	return d, nil
}

type game struct {
	round int
	moves [2][]int
	score [2]int
	bots  [2]Bot
	rng   *rand.Rand
}

// Duel is a vectorised simulator over cfg.Games parallel games.
// It is not safe for concurrent use.
type Duel struct {
	cfg    simulator.Config
	games  []*game
	slots  []simulator.Slot
	logger logger.Logger
	closed bool
}

// Slots implements simulator.Simulator.
func (d *Duel) Slots() []simulator.Slot {
	out := make([]simulator.Slot, len(d.slots))
	copy(out, d.slots)
	return out
}

// Reset implements simulator.Simulator.
func (d *Duel) Reset(ctx context.Context) ([][]float64, error) {
	if d.closed {
		return nil, simulator.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.games = make([]*game, d.cfg.Games)
	for g := range d.games {
		d.games[g] = d.newGame(g)
	}
	obs := make([][]float64, len(d.slots))
	for i, s := range d.slots {
		obs[i] = d.observe(d.games[s.Game], s.Player)
	}
	return obs, nil
}

func (d *Duel) newGame(g int) *game {
	gm := &game{
		rng: rand.New(rand.NewSource(d.cfg.Seed + int64(g)*7919)), //nolint:gosec // game noise
	}
	for p := 0; p < 2; p++ {
		if !d.cfg.Players[p].External {
			gm.bots[p], _ = newBot(d.cfg.Players[p].Strategy)
		}
	}
	return gm
}

// Step implements simulator.Simulator.
func (d *Duel) Step(ctx context.Context, actions []int) (simulator.StepResult, error) {
	if d.closed {
		return simulator.StepResult{}, simulator.ErrClosed
	}
	if d.games == nil {
		return simulator.StepResult{}, fmt.Errorf("%w: step before reset", simulator.ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return simulator.StepResult{}, err
	}
	if len(actions) != len(d.slots) {
		return simulator.StepResult{}, fmt.Errorf("%w: got %d actions for %d slots", simulator.ErrInvalidAction, len(actions), len(d.slots))
	}

	// external moves keyed by game and player
	external := make([][2]int, len(d.games))
	for i, s := range d.slots {
		if !d.cfg.Players[s.Player].External {
			continue
		}
		a := actions[i]
		if a < 0 || a >= NumMoves || !mask(d.games[s.Game].moves[s.Player])[a] {
			return simulator.StepResult{}, fmt.Errorf("%w: slot %d action %d", simulator.ErrInvalidAction, i, a)
		}
		external[s.Game][s.Player] = a
	}

	type settled struct {
		reward  [2]float64
		done    bool
		outcome model.Outcome // player 1's view
	}
	results := make([]settled, len(d.games))
	for g, gm := range d.games {
		var mv [2]int
		for p := 0; p < 2; p++ {
			if d.cfg.Players[p].External {
				mv[p] = external[g][p]
				continue
			}
			h := history{own: gm.moves[p], opp: gm.moves[1-p]}
			mv[p] = gm.bots[p].Move(h, mask(gm.moves[p]), gm.rng)
		}
		switch {
		case Beats(mv[0], mv[1]):
			gm.score[0]++
			results[g].reward = [2]float64{1, -1}
		case Beats(mv[1], mv[0]):
			gm.score[1]++
			results[g].reward = [2]float64{-1, 1}
		}
		gm.moves[0] = append(gm.moves[0], mv[0])
		gm.moves[1] = append(gm.moves[1], mv[1])
		gm.round++

		if gm.round >= d.cfg.Rounds {
			results[g].done = true
			switch {
			case gm.score[0] > gm.score[1]:
				results[g].outcome = model.Win
			case gm.score[0] < gm.score[1]:
				results[g].outcome = model.Loss
			default:
				results[g].outcome = model.Draw
			}
			d.games[g] = d.newGameAfter(g, gm)
		}
	}

	res := simulator.StepResult{
		Obs:     make([][]float64, len(d.slots)),
		Rewards: make([]float64, len(d.slots)),
		Dones:   make([]bool, len(d.slots)),
		Infos:   make([]simulator.Info, len(d.slots)),
	}
	for i, s := range d.slots {
		r := results[s.Game]
		res.Obs[i] = d.observe(d.games[s.Game], s.Player)
		res.Rewards[i] = r.reward[s.Player]
		res.Dones[i] = r.done
		if r.done {
			o := r.outcome
			if s.Player == 1 {
				o = o.Invert()
			}
			res.Infos[i] = simulator.Info{Done: true, Outcome: o}
		}
	}
	return res, nil
}

// newGameAfter restarts game g with a fresh seed stream derived from the finished one.
func (d *Duel) newGameAfter(g int, finished *game) *game {
	next := d.newGame(g)
	next.rng = rand.New(rand.NewSource(finished.rng.Int63())) //nolint:gosec // game noise
	return next
}

// ActionMasks implements simulator.Simulator. Observer slots get an all-true mask.
func (d *Duel) ActionMasks() [][]bool {
	out := make([][]bool, len(d.slots))
	for i, s := range d.slots {
		if d.games == nil {
			out[i] = mask(nil)
			continue
		}
		out[i] = mask(d.games[s.Game].moves[s.Player])
	}
	return out
}

// Close implements simulator.Simulator.
func (d *Duel) Close() error {
	d.closed = true
	d.games = nil
	return nil
}

// mask forbids playing the same move three times in a row.
func mask(own []int) []bool {
	m := make([]bool, NumMoves)
	for i := range m {
		m[i] = true
	}
	if n := len(own); n >= 2 && own[n-1] == own[n-2] {
		m[own[n-1]] = false
	}
	return m
}

func (d *Duel) observe(gm *game, player int) []float64 {
	obs := make([]float64, ObsSize)
	if n := len(gm.moves[player]); n > 0 {
		obs[gm.moves[player][n-1]] = 1
	}
	if n := len(gm.moves[1-player]); n > 0 && !d.cfg.PartialObs {
		obs[NumMoves+gm.moves[1-player][n-1]] = 1
	}
	obs[2*NumMoves] = float64(gm.round) / float64(d.cfg.Rounds)
	return obs
}
