package world

import "errors"

// ErrInvalidFacing is returned when a direction name is not recognised.
var ErrInvalidFacing = errors.New("world: invalid facing")

// ErrUnknownBlock is returned when a block name has no registered shape.
var ErrUnknownBlock = errors.New("world: unknown block")
