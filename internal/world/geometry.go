package world

import (
	"fmt"
	"strings"
)

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Above returns the position directly above p.
func (p BlockPos) Above() BlockPos {
	return BlockPos{X: p.X, Y: p.Y + 1, Z: p.Z}
}

// Center returns the centre of the block's bottom face shifted up by dy.
func (p BlockPos) Center(dy float64) Vec3 {
	return Vec3{X: float64(p.X) + 0.5, Y: float64(p.Y) + dy, Z: float64(p.Z) + 0.5}
}

func (p BlockPos) String() string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}

// Vec3 is a point or velocity in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec2 is a horizontal offset.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Facing is one of the four horizontal directions.
// The numeric value is the direction's horizontal index (south, west, north, east).
type Facing int

const (
	FacingSouth Facing = iota
	FacingWest
	FacingNorth
	FacingEast
)

// Horizontal returns the direction's index among the four horizontal directions.
func (f Facing) Horizontal() int {
	return int(f) & 3
}

// StepX returns the X component of the direction's unit vector.
func (f Facing) StepX() int {
	switch f {
	case FacingWest:
		return -1
	case FacingEast:
		return 1
	default:
		return 0
	}
}

// StepZ returns the Z component of the direction's unit vector.
func (f Facing) StepZ() int {
	switch f {
	case FacingNorth:
		return -1
	case FacingSouth:
		return 1
	default:
		return 0
	}
}

// ClockWise returns the direction rotated 90 degrees clockwise seen from above.
func (f Facing) ClockWise() Facing {
	switch f {
	case FacingNorth:
		return FacingEast
	case FacingEast:
		return FacingSouth
	case FacingSouth:
		return FacingWest
	default:
		return FacingNorth
	}
}

func (f Facing) String() string {
	switch f {
	case FacingSouth:
		return "south"
	case FacingWest:
		return "west"
	case FacingNorth:
		return "north"
	case FacingEast:
		return "east"
	default:
		return "unknown"
	}
}

// ParseFacing converts a direction name. An empty string means north.
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "":
		return FacingNorth, nil
	case "south":
		return FacingSouth, nil
	case "west":
		return FacingWest, nil
	case "east":
		return FacingEast, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFacing, s)
	}
}

// Box is an axis-aligned box in block-local coordinates (0..1 on each axis).
type Box struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Pixels builds a box from sixteenths of a block, the unit block models use.
func Pixels(minX, minY, minZ, maxX, maxY, maxZ float64) Box {
	const px = 16.0
	return Box{
		MinX: minX / px, MinY: minY / px, MinZ: minZ / px,
		MaxX: maxX / px, MaxY: maxY / px, MaxZ: maxZ / px,
	}
}

// Intersects reports whether a and b share a region of positive volume.
// Boxes that only touch on a face do not intersect.
func (a Box) Intersects(b Box) bool {
	return a.MinX < b.MaxX && a.MaxX > b.MinX &&
		a.MinY < b.MaxY && a.MaxY > b.MinY &&
		a.MinZ < b.MaxZ && a.MaxZ > b.MinZ
}

// Shape is the union of boxes making up a block's collision volume.
type Shape []Box

// Intersects reports whether any box of s intersects box.
func (s Shape) Intersects(box Box) bool {
	for _, b := range s {
		if b.Intersects(box) {
			return true
		}
	}
	return false
}
