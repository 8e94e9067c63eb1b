package model

import (
	"fmt"
	"time"
)

// Outcome is a terminal game result from the challenger's perspective.
// Numeric values follow the simulator's reward codes.
type Outcome int

// Outcomes.
const (
	Loss Outcome = -1
	Draw Outcome = 0
	Win  Outcome = 1
)

// OutcomeFromCode maps a simulator reward code to an Outcome.
func OutcomeFromCode(code int) (Outcome, error) {
	switch code {
	case 1:
		return Win, nil
	case 0:
		return Draw, nil
	case -1:
		return Loss, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownOutcome, code)
}

// Invert returns the same result seen from the other side.
func (o Outcome) Invert() Outcome { return -o }

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Loss:
		return "loss"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Tally counts outcomes.
type Tally struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

// Add counts one outcome.
func (t *Tally) Add(o Outcome) {
	switch o {
	case Win:
		t.Wins++
	case Draw:
		t.Draws++
	case Loss:
		t.Losses++
	}
}

// Merge adds other's counts into t.
func (t *Tally) Merge(other Tally) {
	t.Wins += other.Wins
	t.Draws += other.Draws
	t.Losses += other.Losses
}

// Games returns the number of counted games.
func (t Tally) Games() int { return t.Wins + t.Draws + t.Losses }

// TallyOf counts a slice of outcomes.
func TallyOf(outcomes []Outcome) Tally {
	var t Tally
	for _, o := range outcomes {
		t.Add(o)
	}
	return t
}

// MatchRecord aggregates one batch between an ordered pair.
type MatchRecord struct {
	ID         int64
	RunID      string
	Challenger string
	Defender   string
	Tally
	CreatedAt time.Time
}

// Fixture is one directed pairing scheduled for a single batch.
type Fixture struct {
	Challenger Competitor
	Defender   Competitor
}

func (f Fixture) String() string {
	return f.Challenger.Name + " vs " + f.Defender.Name
}
