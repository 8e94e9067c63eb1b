package match

import (
	"github.com/okian/league/internal/adapters/simulator"
)

// Side indexes the two participants of a fixture. The challenger always
// takes the simulator's first seat.
type Side int

// Sides.
const (
	Challenger Side = 0
	Defender   Side = 1
)

// SlotAssignment maps simulator slots to fixture sides. It is computed once
// per batch from the simulator's slot layout.
type SlotAssignment struct {
	// bySide lists, per side, the slots that side controls.
	bySide [2][]int
	// reporting lists one slot per game; its termination is recorded.
	reporting []int
	// invert marks reporting slots seen from the defender's seat.
	invert map[int]bool
}

// Assign builds the assignment for slots. controlled reports whether a side
// is driven by a policy through Step actions.
func Assign(slots []simulator.Slot, controlled [2]bool) SlotAssignment {
	a := SlotAssignment{invert: make(map[int]bool)}
	seen := make(map[int]bool)
	for i, s := range slots {
		side := Side(s.Player)
		if controlled[side] {
			a.bySide[side] = append(a.bySide[side], i)
		}
		if seen[s.Game] {
			continue
		}
		// first slot of a game reports for it; in self-play that is the even,
		// challenger slot
		seen[s.Game] = true
		a.reporting = append(a.reporting, i)
		if side == Defender {
			a.invert[i] = true
		}
	}
	return a
}

// Slots returns the slots controlled by side.
func (a SlotAssignment) Slots(side Side) []int { return a.bySide[side] }

// Reporting returns the reporting slots in slot order.
func (a SlotAssignment) Reporting() []int { return a.reporting }

// gather selects the rows of xs belonging to side.
func gather[T any](a SlotAssignment, side Side, xs []T) []T {
	idx := a.bySide[side]
	out := make([]T, len(idx))
	for i, slot := range idx {
		out[i] = xs[slot]
	}
	return out
}

// scatter writes side's actions back into the full action vector.
func scatter(a SlotAssignment, side Side, sideActions []int, actions []int) {
	for i, slot := range a.bySide[side] {
		actions[slot] = sideActions[i]
	}
}
