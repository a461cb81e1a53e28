package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/stovesync"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// WebSocket channels the scheduler broadcasts on.
const (
	ChannelStoveSynced  = "stove.synced"
	ChannelStoveRemoved = "stove.removed"
	ChannelCookEvent    = "stove.event"
	ChannelItemsSpawned = "world.items"
	ChannelParticles    = "world.particles"
)

const (
	defaultQueueSize    = 256
	defaultOutboxSize   = 1024
	defaultSampleTicks  = 200
	commandsPerTickHint = 64
)

// Syncer publishes stove state to presentation replicas.
type Syncer interface {
	Sync(p stovesync.Payload) error
	Remove(stoveID string) error
	Event(ev stove.CookEvent) error
}

// Broadcaster pushes messages to WebSocket subscribers.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Telemetry records cook events and periodic stove gauges.
type Telemetry interface {
	WriteCookEvent(ev influxdb.CookEvent)
	WriteStoveState(stoveID string, lit bool, occupied int, progress float64)
}

// Logger defines the logging interface for the scheduler.
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

// Config holds the loop settings.
type Config struct {
	// Role is config.RoleAuthoritative or config.RolePresentation.
	Role string

	// TickInterval is the wall-clock duration of one tick.
	TickInterval time.Duration

	// PersistTicks is how many ticks dirty stoves wait before being written.
	// Values below 1 write on the tick they changed.
	PersistTicks int

	// SampleTicks is how often stove gauges are sent to telemetry.
	SampleTicks int

	// QueueSize bounds the command queue.
	QueueSize int
}

// ConfigFrom derives the loop settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Role:         cfg.Simulation.Role,
		TickInterval: cfg.TickInterval(),
		PersistTicks: cfg.Simulation.PersistInterval,
		SampleTicks:  defaultSampleTicks,
		QueueSize:    defaultQueueSize,
	}
}

// Deps are the collaborators of a Scheduler. Registry and World are
// required; the rest are optional.
type Deps struct {
	Registry  *stove.Registry
	World     *world.World
	Syncer    Syncer
	Hub       Broadcaster
	Telemetry Telemetry
	Logger    Logger
}

// Scheduler owns the tick goroutine.
type Scheduler struct {
	cfg       Config
	registry  *stove.Registry
	world     *world.World
	syncer    Syncer
	hub       Broadcaster
	telemetry Telemetry
	logger    Logger

	commands chan func()
	outbox   chan func()

	// Tick goroutine state.
	ticks   uint64
	pending map[string]*stove.Stove

	// runMu orders enqueues against shutdown: commands are only sent while
	// holding it for reading, and the loop closes the queue under the write
	// lock before its final drain.
	runMu   sync.RWMutex
	running bool
	closed  bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a scheduler. It registers itself as the registry's cook
// event observer in the authoritative role.
func New(cfg Config, deps Deps) *Scheduler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SampleTicks <= 0 {
		cfg.SampleTicks = defaultSampleTicks
	}
	if cfg.PersistTicks < 1 {
		cfg.PersistTicks = 1
	}

	s := &Scheduler{
		cfg:       cfg,
		registry:  deps.Registry,
		world:     deps.World,
		syncer:    deps.Syncer,
		hub:       deps.Hub,
		telemetry: deps.Telemetry,
		logger:    deps.Logger,
		commands:  make(chan func(), cfg.QueueSize),
		outbox:    make(chan func(), defaultOutboxSize),
		pending:   make(map[string]*stove.Stove),
		done:      make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.authoritative() {
		s.registry.SetObserver(s.onCookEvent)
	}
	return s
}

func (s *Scheduler) authoritative() bool {
	return s.cfg.Role != config.RolePresentation
}

// Start launches the tick and outbox goroutines. They stop when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	s.running = true
	s.runMu.Unlock()

	s.wg.Add(2)
	go s.loop(ctx)
	go s.drainOutbox()

	s.logger.Info("scheduler started",
		"role", s.cfg.Role,
		"tick_interval", s.cfg.TickInterval.String(),
		"stoves", s.registry.Count(),
	)
}

// Stop ends the loop, writes every pending stove and waits for queued
// network sends to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.logger.Info("scheduler stopped", "ticks", s.ticks)
	})
}

// Do runs fn on the tick goroutine and waits for it to finish.
// Returns ErrNotRunning before Start and after shutdown, and ErrQueueFull
// when the queue has no room.
func (s *Scheduler) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := s.enqueue(ctx, func() {
		defer close(finished)
		fn()
	}, true); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn to run on the tick goroutine without waiting. Commands
// posted before Start run once the loop starts. It reports false when the
// queue is full or the loop has shut down.
func (s *Scheduler) Post(fn func()) bool {
	return s.enqueue(context.Background(), fn, false) == nil
}

// enqueue sends fn without blocking. Anything it accepts is guaranteed to
// run: the loop drains the whole queue after closing it.
func (s *Scheduler) enqueue(ctx context.Context, fn func(), needRunning bool) error {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	if s.closed || (needRunning && !s.running) {
		return ErrNotRunning
	}
	select {
	case s.commands <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Removed publishes the removal of a stove. It must be called from a
// command running on the tick goroutine.
func (s *Scheduler) Removed(stoveID string) {
	delete(s.pending, stoveID)
	s.send(func() {
		if s.syncer != nil {
			if err := s.syncer.Remove(stoveID); err != nil {
				s.logger.Warn("failed to clear stove sync", "id", stoveID, "error", err)
			}
		}
		if s.hub != nil {
			s.hub.Broadcast(ChannelStoveRemoved, map[string]string{"id": stoveID})
		}
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.outbox)
	defer func() {
		s.runMu.Lock()
		s.running = false
		s.closed = true
		s.runMu.Unlock()
		s.drainCommands()
		s.flushPending(context.Background())
	}()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case fn := <-s.commands:
			s.runCommand(fn)
		case <-ticker.C:
			s.runCommands()
			s.tick(ctx)
		}
	}
}

// drainCommands runs everything left in the queue. Only called once the
// queue is closed to new sends.
func (s *Scheduler) drainCommands() {
	for {
		select {
		case fn := <-s.commands:
			s.runCommand(fn)
		default:
			return
		}
	}
}

// runCommands runs up to commandsPerTickHint queued commands without
// blocking, so a burst cannot starve the tick.
func (s *Scheduler) runCommands() {
	for i := 0; i < commandsPerTickHint; i++ {
		select {
		case fn := <-s.commands:
			s.runCommand(fn)
		default:
			return
		}
	}
}

func (s *Scheduler) runCommand(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler command panic recovered", "panic", r)
		}
	}()
	fn()
}

// tick runs one tick for the configured role.
func (s *Scheduler) tick(ctx context.Context) {
	s.ticks++
	if s.authoritative() {
		s.tickAuthoritative(ctx)
	} else {
		s.tickPresentation()
	}
}

func (s *Scheduler) tickAuthoritative(ctx context.Context) {
	stoves := s.registry.List()
	for _, st := range stoves {
		st.Advance()
	}

	for _, st := range stoves {
		if !st.TakeChanged() {
			continue
		}
		s.pending[st.ID()] = st
		s.sync(st)
	}

	if s.ticks%uint64(s.cfg.PersistTicks) == 0 {
		s.flushPending(ctx)
	}

	if items := s.world.TakeEntities(); len(items) > 0 && s.hub != nil {
		s.send(func() { s.hub.Broadcast(ChannelItemsSpawned, items) })
	}

	if s.telemetry != nil && s.ticks%uint64(s.cfg.SampleTicks) == 0 {
		s.sample(stoves)
	}
}

func (s *Scheduler) tickPresentation() {
	for _, st := range s.registry.List() {
		st.EmitEffects()
	}

	particles, dropped := s.world.DrainParticles()
	if dropped > 0 {
		s.logger.Warn("particle buffer overflow", "dropped", dropped)
	}
	if len(particles) > 0 && s.hub != nil {
		s.send(func() { s.hub.Broadcast(ChannelParticles, particles) })
	}
}

// sync encodes st on the tick goroutine and hands the payload to the outbox.
func (s *Scheduler) sync(st *stove.Stove) {
	if s.syncer == nil && s.hub == nil {
		return
	}
	payload, err := stovesync.Encode(st)
	if err != nil {
		s.logger.Error("failed to encode stove", "id", st.ID(), "error", err)
		return
	}
	s.send(func() {
		if s.syncer != nil {
			if err := s.syncer.Sync(payload); err != nil {
				s.logger.Warn("failed to publish stove sync", "id", payload.ID, "error", err)
			}
		}
		if s.hub != nil {
			s.hub.Broadcast(ChannelStoveSynced, payload)
		}
	})
}

// flushPending writes every stove that changed since the last flush.
func (s *Scheduler) flushPending(ctx context.Context) {
	for id, st := range s.pending {
		if _, err := s.registry.Get(id); err != nil {
			delete(s.pending, id)
			continue
		}
		if err := s.registry.Persist(ctx, st); err != nil {
			s.logger.Error("failed to persist stove", "id", id, "error", err)
			continue
		}
		delete(s.pending, id)
	}
}

func (s *Scheduler) sample(stoves []*stove.Stove) {
	type gauge struct {
		id       string
		lit      bool
		occupied int
		progress float64
	}
	gauges := make([]gauge, 0, len(stoves))
	for _, st := range stoves {
		g := gauge{id: st.ID(), lit: st.Lit()}
		var sum float64
		for _, view := range st.Snapshot().Slots {
			if view.Stack.IsEmpty() {
				continue
			}
			g.occupied++
			if view.CookTimeTotal > 0 {
				sum += float64(view.CookTime) / float64(view.CookTimeTotal)
			}
		}
		if g.occupied > 0 {
			g.progress = sum / float64(g.occupied)
		}
		gauges = append(gauges, g)
	}
	s.send(func() {
		for _, g := range gauges {
			s.telemetry.WriteStoveState(g.id, g.lit, g.occupied, g.progress)
		}
	})
}

// onCookEvent is the registry observer; it runs inside Advance.
func (s *Scheduler) onCookEvent(ev stove.CookEvent) {
	s.logger.Debug("stove slot finished", "id", ev.StoveID, "slot", ev.Slot, "kind", string(ev.Kind), "input", ev.Input.Item)
	s.send(func() {
		if s.telemetry != nil {
			s.telemetry.WriteCookEvent(influxdb.CookEvent{
				StoveID:  ev.StoveID,
				Kind:     string(ev.Kind),
				Slot:     ev.Slot,
				Input:    ev.Input.Item,
				RecipeID: ev.RecipeID,
				Result:   ev.Result.Item,
				Count:    ev.Input.Count,
			})
		}
		if s.syncer != nil {
			if err := s.syncer.Event(ev); err != nil {
				s.logger.Warn("failed to publish cook event", "id", ev.StoveID, "error", err)
			}
		}
		if s.hub != nil {
			s.hub.Broadcast(ChannelCookEvent, ev)
		}
	})
}

// send queues network work for the outbox goroutine, dropping it when the
// outbox is full.
func (s *Scheduler) send(fn func()) {
	select {
	case s.outbox <- fn:
	default:
		s.logger.Warn("outbox full, dropping message")
	}
}

func (s *Scheduler) drainOutbox() {
	defer s.wg.Done()
	for fn := range s.outbox {
		s.runCommand(fn)
	}
}
