package item

import "errors"

// ErrMalformedContainer is returned when a serialized container cannot be decoded.
var ErrMalformedContainer = errors.New("item: malformed container")
