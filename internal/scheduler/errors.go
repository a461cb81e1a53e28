package scheduler

import "errors"

var (
	// ErrNotRunning is returned by Do when the loop is not running.
	ErrNotRunning = errors.New("scheduler: not running")

	// ErrQueueFull is returned by Do when the command queue is full.
	ErrQueueFull = errors.New("scheduler: command queue full")
)
