package stove

import "github.com/nerrad567/gray-hearth/internal/world"

// slotOffsets places the six slots on a 3x2 grid, in block-local units
// relative to the block centre, for a stove facing along the Z axis.
var slotOffsets = [SlotCount]world.Vec2{
	{X: 0.3, Y: 0.2},
	{X: 0.0, Y: 0.2},
	{X: -0.3, Y: 0.2},
	{X: 0.3, Y: -0.2},
	{X: 0.0, Y: -0.2},
	{X: -0.3, Y: -0.2},
}

// ItemOffset returns the 2D display offset of slot i. It reports false for
// an index outside [0, SlotCount).
func ItemOffset(i int) (world.Vec2, bool) {
	if i < 0 || i >= SlotCount {
		return world.Vec2{}, false
	}
	return slotOffsets[i], true
}

// rotatedOffset returns the offset of slot i for a stove facing f. Stoves on
// the X axis swap the grid's components.
func rotatedOffset(i int, f world.Facing) world.Vec2 {
	off, _ := ItemOffset(i)
	if f.Horizontal()%2 != 0 {
		off = world.Vec2{X: off.Y, Y: off.X}
	}
	return off
}

// smokePosition is where smoke rises for slot i: on the stove's top face,
// shifted by the rotated slot offset.
func (s *Stove) smokePosition(i int) world.Vec3 {
	off := rotatedOffset(i, s.facing)
	cw := s.facing.ClockWise()
	return world.Vec3{
		X: float64(s.pos.X) + 0.5 - float64(s.facing.StepX())*off.X + float64(cw.StepX())*off.X,
		Y: float64(s.pos.Y) + 1.0,
		Z: float64(s.pos.Z) + 0.5 - float64(s.facing.StepZ())*off.Y + float64(cw.StepZ())*off.Y,
	}
}
