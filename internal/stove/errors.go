package stove

import "errors"

// Domain errors for the stove package.
//
//	if errors.Is(err, stove.ErrStoveNotFound) {
//	    // handle not found case
//	}
var (
	// ErrStoveNotFound is returned when a stove ID does not exist.
	ErrStoveNotFound = errors.New("stove: not found")

	// ErrStoveExists is returned when creating a stove whose ID or position is taken.
	ErrStoveExists = errors.New("stove: already exists")

	// ErrPositionOccupied is returned when placing a stove where one already stands.
	ErrPositionOccupied = errors.New("stove: position occupied")

	// ErrPositionBlocked is returned when placing a stove inside a non-air block.
	ErrPositionBlocked = errors.New("stove: position blocked")

	// ErrMalformedRecord is returned when a persisted or synced record cannot be decoded.
	ErrMalformedRecord = errors.New("stove: malformed record")
)
