// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"

	"github.com/okian/league/internal/domain/rating"
)

// Kind tags a competitor as a scripted bot or a learned checkpoint.
type Kind string

// Competitor kinds. Values are persisted.
const (
	KindScripted Kind = "scripted"
	KindLearned  Kind = "learned"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindScripted || k == KindLearned
}

// Competitor is a named participant with a rating.
type Competitor struct {
	Name   string
	Kind   Kind
	Rating rating.Rating
}

// NewScripted builds a scripted competitor identified by a built-in strategy name.
func NewScripted(strategy string, r rating.Rating) Competitor {
	return Competitor{Name: strategy, Kind: KindScripted, Rating: r}
}

// NewLearned builds a learned competitor identified by its checkpoint path.
func NewLearned(checkpoint string, r rating.Rating) Competitor {
	return Competitor{Name: checkpoint, Kind: KindLearned, Rating: r}
}

// Scripted returns the strategy identifier when c is scripted.
func (c Competitor) Scripted() (string, bool) {
	if c.Kind != KindScripted {
		return "", false
	}
	return c.Name, true
}

// Learned returns the checkpoint reference when c is learned.
func (c Competitor) Learned() (string, bool) {
	if c.Kind != KindLearned {
		return "", false
	}
	return c.Name, true
}

// ParseCompetitor classifies a raw identifier. Identifiers ending in suffix
// are learned checkpoints; everything else names a scripted bot.
func ParseCompetitor(id, suffix string, r rating.Rating) (Competitor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Competitor{}, fmt.Errorf("%w: empty identifier", ErrInvalidCompetitor)
	}
	if suffix != "" && strings.HasSuffix(id, suffix) {
		if len(id) == len(suffix) {
			return Competitor{}, fmt.Errorf("%w: %q has no name before the checkpoint suffix", ErrInvalidCompetitor, id)
		}
		return NewLearned(id, r), nil
	}
	return NewScripted(id, r), nil
}
