// Package schedule decides who plays whom and how each pairing is driven.
package schedule

import (
	"fmt"

	"github.com/okian/league/internal/domain/model"
)

// Mode selects how the match runner drives a pairing.
type Mode int

// Modes.
const (
	// ModeLearnedVsScripted: one policy-driven side, one built-in bot.
	ModeLearnedVsScripted Mode = iota + 1
	// ModeLearnedVsLearned: two policies; slots alternate sides.
	ModeLearnedVsLearned
	// ModeScriptedVsScripted: no policy is queried.
	ModeScriptedVsScripted
)

func (m Mode) String() string {
	switch m {
	case ModeLearnedVsScripted:
		return "learned_vs_scripted"
	case ModeLearnedVsLearned:
		return "learned_vs_learned"
	case ModeScriptedVsScripted:
		return "scripted_vs_scripted"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// SelectMode maps the kinds of a pairing to a Mode. Order does not matter.
func SelectMode(a, b model.Kind) (Mode, error) {
	if !a.Valid() || !b.Valid() {
		return 0, fmt.Errorf("%w: %q vs %q", ErrUnknownKind, a, b)
	}
	switch {
	case a == model.KindLearned && b == model.KindLearned:
		return ModeLearnedVsLearned, nil
	case a == model.KindScripted && b == model.KindScripted:
		return ModeScriptedVsScripted, nil
	default:
		return ModeLearnedVsScripted, nil
	}
}
