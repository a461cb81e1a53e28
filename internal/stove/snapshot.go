package stove

import (
	"github.com/nerrad567/gray-hearth/internal/item"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// SlotView is a read-only view of one cooking slot.
type SlotView struct {
	Index         int        `json:"index"`
	Stack         item.Stack `json:"stack"`
	CookTime      int        `json:"cook_time"`
	CookTimeTotal int        `json:"cook_time_total"`
	Offset        world.Vec2 `json:"offset"`
}

// Snapshot is a point-in-time copy of a stove for the API and telemetry.
type Snapshot struct {
	ID     string         `json:"id"`
	Pos    world.BlockPos `json:"pos"`
	Facing string         `json:"facing"`
	Lit    bool           `json:"lit"`
	Slots  []SlotView     `json:"slots"`
}

// Slot returns a view of slot i. It reports false for an out-of-range index.
func (s *Stove) Slot(i int) (SlotView, bool) {
	if i < 0 || i >= len(s.slots) {
		return SlotView{}, false
	}
	return SlotView{
		Index:         i,
		Stack:         s.inventory.Get(i),
		CookTime:      s.slots[i].cookTime,
		CookTimeTotal: s.slots[i].cookTimeTotal,
		Offset:        rotatedOffset(i, s.facing),
	}, true
}

// Occupied returns the number of non-empty slots.
func (s *Stove) Occupied() int {
	n := 0
	for i := range s.slots {
		if !s.inventory.Get(i).IsEmpty() {
			n++
		}
	}
	return n
}

// Snapshot copies the stove's current state.
func (s *Stove) Snapshot() Snapshot {
	snap := Snapshot{
		ID:     s.id,
		Pos:    s.pos,
		Facing: s.facing.String(),
		Lit:    s.lit,
		Slots:  make([]SlotView, 0, len(s.slots)),
	}
	for i := range s.slots {
		v, _ := s.Slot(i)
		snap.Slots = append(snap.Slots, v)
	}
	return snap
}
