// Package simulator declares the contract between the match runner and a
// vectorised game environment.
package simulator

import (
	"context"
	"errors"

	"github.com/okian/league/internal/domain/model"
)

// NoopAction is sent for slots whose player is driven inside the simulator.
const NoopAction = -1

// Sentinel kinds for simulator errors.
var (
	ErrUnknownStrategy = errors.New("unknown scripted strategy")
	ErrInvalidAction   = errors.New("invalid action")
	ErrInvalidConfig   = errors.New("invalid simulator config")
	ErrClosed          = errors.New("simulator closed")
)

// Player configures one seat of every game.
type Player struct {
	// Strategy names a built-in bot; ignored when External is true.
	Strategy string
	// External players receive actions through Step.
	External bool
}

// Config describes a batch of parallel games between the same two players.
// Player 1 always starts at location 1.
type Config struct {
	Games      int
	Players    [2]Player
	Rounds     int
	PartialObs bool
	Seed       int64
}

// Slot identifies the seat a slot observes and, if external, controls.
type Slot struct {
	Game   int
	Player int // 0 or 1
}

// Info carries per-slot step metadata.
type Info struct {
	// Done marks the step on which the slot's episode ended.
	Done bool
	// Outcome is the terminal result from the slot's own player's view.
	// It is meaningful only when Done is true.
	Outcome model.Outcome
}

// StepResult is the vectorised result of one Step.
type StepResult struct {
	Obs     [][]float64
	Rewards []float64
	Dones   []bool
	Infos   []Info
}

// Simulator is a vectorised environment. Finished games restart
// automatically so Step can be called until the caller has enough outcomes.
type Simulator interface {
	Reset(ctx context.Context) ([][]float64, error)
	Step(ctx context.Context, actions []int) (StepResult, error)
	// ActionMasks returns, per slot, which actions are currently legal.
	ActionMasks() [][]bool
	// Slots returns the fixed slot layout for the simulator's lifetime.
	Slots() []Slot
	Close() error
}

// Factory builds a fresh Simulator per batch.
type Factory interface {
	New(ctx context.Context, cfg Config) (Simulator, error)
}
