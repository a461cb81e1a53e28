package stovesync

import "errors"

var (
	// ErrInvalidPayload is returned when a sync payload cannot be decoded.
	ErrInvalidPayload = errors.New("stovesync: invalid payload")

	// ErrUnexpectedTopic is returned for messages outside the stove sync topics.
	ErrUnexpectedTopic = errors.New("stovesync: unexpected topic")

	// ErrQueueFull is returned when the tick loop cannot accept another update.
	ErrQueueFull = errors.New("stovesync: command queue full")
)
