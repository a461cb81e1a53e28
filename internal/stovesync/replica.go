package stovesync

import (
	"fmt"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-hearth/internal/stove"
)

// Logger is the logging surface used by the replica.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Executor runs fn on the goroutine that owns the replica stoves. It
// reports false when fn could not be queued.
type Executor func(fn func()) bool

// Replica applies sync messages to a presentation-side registry.
type Replica struct {
	registry *stove.Registry
	exec     Executor
	logger   Logger
}

// NewReplica creates a replica feeding registry. Updates are handed to exec
// so they never race the presentation tick; a nil exec applies them inline.
func NewReplica(registry *stove.Registry, exec Executor) *Replica {
	return &Replica{registry: registry, exec: exec, logger: noopLogger{}}
}

// SetLogger sets the logger for the replica.
func (r *Replica) SetLogger(logger Logger) {
	r.logger = logger
}

// HandleSync is an mqtt.MessageHandler for the stove sync topics.
func (r *Replica) HandleSync(topic string, payload []byte) error {
	id, ok := mqtt.StoveIDFromSyncTopic(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
	}

	if len(payload) == 0 {
		return r.run(func() {
			if r.registry.Forget(id) {
				r.logger.Info("replica stove removed", "id", id)
			}
		})
	}

	p, err := Decode(payload)
	if err != nil {
		return err
	}
	if p.ID != id {
		return fmt.Errorf("%w: payload id %q on topic for %q", ErrInvalidPayload, p.ID, id)
	}
	st, err := p.Stored()
	if err != nil {
		return err
	}

	return r.run(func() {
		s := r.registry.Apply(st)
		r.logger.Debug("replica stove synced", "id", id, "lit", s.Lit(), "occupied", s.Occupied())
	})
}

func (r *Replica) run(fn func()) error {
	if r.exec == nil {
		fn()
		return nil
	}
	if !r.exec(fn) {
		return ErrQueueFull
	}
	return nil
}
