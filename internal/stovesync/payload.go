package stovesync

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// Payload is the wire form of one stove's synced state. Tag is the stove's
// update tag, identical to its save record.
type Payload struct {
	ID     string       `json:"id"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Z      int          `json:"z"`
	Facing string       `json:"facing"`
	Lit    bool         `json:"lit"`
	Tag    stove.Record `json:"tag"`
}

// Encode captures the current state of s.
func Encode(s *stove.Stove) (Payload, error) {
	tag, err := s.UpdateTag()
	if err != nil {
		return Payload{}, fmt.Errorf("encoding stove %s: %w", s.ID(), err)
	}
	pos := s.Pos()
	return Payload{
		ID:     s.ID(),
		X:      pos.X,
		Y:      pos.Y,
		Z:      pos.Z,
		Facing: s.Facing().String(),
		Lit:    s.Lit(),
		Tag:    tag,
	}, nil
}

// Bytes marshals the payload to JSON.
func (p Payload) Bytes() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a sync payload.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if p.ID == "" {
		return Payload{}, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	return p, nil
}

// Stored converts the payload into the form the stove registry applies.
func (p Payload) Stored() (stove.Stored, error) {
	facing, err := world.ParseFacing(p.Facing)
	if err != nil {
		return stove.Stored{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	tag := p.Tag
	if tag == nil {
		tag = stove.Record{}
	}
	return stove.Stored{
		ID:     p.ID,
		Pos:    world.BlockPos{X: p.X, Y: p.Y, Z: p.Z},
		Facing: facing,
		Lit:    p.Lit,
		Record: tag,
	}, nil
}
