package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/database"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-hearth/internal/item"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/stovesync"
	"github.com/nerrad567/gray-hearth/internal/world"
	_ "github.com/nerrad567/gray-hearth/migrations"
)

type fakeSyncer struct {
	mu      sync.Mutex
	synced  []stovesync.Payload
	removed []string
	events  []stove.CookEvent
}

func (f *fakeSyncer) Sync(p stovesync.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, p)
	return nil
}

func (f *fakeSyncer) Remove(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeSyncer) Event(ev stove.CookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type fakeHub struct {
	mu       sync.Mutex
	channels map[string]int
}

func (h *fakeHub) Broadcast(channel string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels == nil {
		h.channels = make(map[string]int)
	}
	h.channels[channel]++
}

func (h *fakeHub) count(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.channels[channel]
}

type fakeTelemetry struct {
	mu     sync.Mutex
	events []influxdb.CookEvent
	states int
}

func (f *fakeTelemetry) WriteCookEvent(ev influxdb.CookEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeTelemetry) WriteStoveState(string, bool, int, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states++
}

type fixture struct {
	sched     *Scheduler
	registry  *stove.Registry
	repo      *stove.SQLiteRepository
	world     *world.World
	syncer    *fakeSyncer
	hub       *fakeHub
	telemetry *fakeTelemetry
}

// setupTestDB opens a migrated database in a temp directory.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "hearth.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	catalog := recipe.NewCatalog()
	short := recipe.Recipe{
		ID:          "cooked_cod_fast",
		Kind:        recipe.KindCampfireCooking,
		Ingredients: []string{"cod"},
		Result:      item.NewStack("cooked_cod", 1),
		CookTime:    3,
	}
	if err := catalog.Replace([]recipe.Recipe{short}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	f := &fixture{
		world:     world.New(42),
		syncer:    &fakeSyncer{},
		hub:       &fakeHub{},
		telemetry: &fakeTelemetry{},
	}
	if cfg.Role == config.RolePresentation {
		f.registry = stove.NewRegistry(nil, stove.Bind(f.world, catalog))
	} else {
		f.repo = stove.NewSQLiteRepository(setupTestDB(t).DB)
		f.registry = stove.NewRegistry(f.repo, stove.Bind(f.world, catalog))
	}
	f.sched = New(cfg, Deps{
		Registry:  f.registry,
		World:     f.world,
		Syncer:    f.syncer,
		Hub:       f.hub,
		Telemetry: f.telemetry,
	})
	return f
}

// runOutbox executes queued network work on the test goroutine.
func (f *fixture) runOutbox() {
	for {
		select {
		case fn := <-f.sched.outbox:
			fn()
		default:
			return
		}
	}
}

func TestTick_AuthoritativeCooksSyncsAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Role: config.RoleAuthoritative, PersistTicks: 2, SampleTicks: 2})

	s, err := f.registry.Place(ctx, world.BlockPos{X: 0, Y: 64, Z: 0}, world.FacingNorth)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	cod := item.NewStack("cod", 1)
	if !s.AddItem(&cod) {
		t.Fatal("AddItem() = false")
	}
	s.SetLit(true)

	// Tick 1: the add and light marked the stove dirty.
	f.sched.tick(ctx)
	f.runOutbox()
	if len(f.syncer.synced) != 1 || f.hub.count(ChannelStoveSynced) != 1 {
		t.Fatalf("after tick 1: synced %d, hub %d", len(f.syncer.synced), f.hub.count(ChannelStoveSynced))
	}
	if _, ok := f.sched.pending[s.ID()]; !ok {
		t.Error("stove not pending persistence after tick 1")
	}

	// Tick 2: progress alone is not a change, but the persist batch runs.
	f.sched.tick(ctx)
	f.runOutbox()
	if len(f.syncer.synced) != 1 {
		t.Errorf("progress tick synced again: %d", len(f.syncer.synced))
	}
	if len(f.sched.pending) != 0 {
		t.Errorf("pending = %d after persist tick", len(f.sched.pending))
	}
	stored, err := f.repo.GetByID(ctx, s.ID())
	if err != nil || !stored.Lit {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
	if f.telemetry.states != 1 {
		t.Errorf("state samples = %d, want 1", f.telemetry.states)
	}

	// Tick 3: the cod finishes.
	f.sched.tick(ctx)
	f.runOutbox()
	if len(f.syncer.events) != 1 || f.syncer.events[0].Kind != stove.EventCooked {
		t.Fatalf("events = %+v", f.syncer.events)
	}
	if len(f.telemetry.events) != 1 || f.telemetry.events[0].Result != "cooked_cod" {
		t.Errorf("telemetry events = %+v", f.telemetry.events)
	}
	if f.hub.count(ChannelItemsSpawned) != 1 || f.hub.count(ChannelCookEvent) != 1 {
		t.Errorf("hub = %v", f.hub.channels)
	}
	if len(f.syncer.synced) != 2 {
		t.Errorf("completion not synced: %d", len(f.syncer.synced))
	}
}

func TestTick_ObstructionEjects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Role: config.RoleAuthoritative})

	pos := world.BlockPos{X: 4, Y: 64, Z: 4}
	s, err := f.registry.Place(ctx, pos, world.FacingSouth)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	cod := item.NewStack("cod", 1)
	s.AddItem(&cod)
	f.world.SetBlock(pos.Above(), world.BlockStone)

	f.sched.tick(ctx)
	f.runOutbox()

	if s.Occupied() != 0 {
		t.Error("stove still holds items under a full block")
	}
	if len(f.syncer.events) != 1 || f.syncer.events[0].Kind != stove.EventEjected {
		t.Errorf("events = %+v", f.syncer.events)
	}
}

func TestTick_PresentationEmitsOnly(t *testing.T) {
	f := newFixture(t, Config{Role: config.RolePresentation})

	rec := stove.Record{
		stove.KeyInventory:         []byte(`{"Size":6,"Items":[{"Slot":0,"id":"cod","Count":1},{"Slot":1,"id":"cod","Count":1}]}`),
		stove.KeyCookingTimes:      []byte(`[1,1,0,0,0,0]`),
		stove.KeyCookingTotalTimes: []byte(`[3,3,0,0,0,0]`),
	}
	s := f.registry.Apply(stove.Stored{ID: "stv-replica", Facing: world.FacingNorth, Lit: true, Record: rec})

	for i := 0; i < 50; i++ {
		f.sched.tick(context.Background())
	}
	f.runOutbox()

	if view, _ := s.Slot(0); view.CookTime != 1 {
		t.Errorf("presentation tick advanced cooking: %+v", view)
	}
	if s.Occupied() != 2 {
		t.Errorf("Occupied() = %d, want 2", s.Occupied())
	}
	if f.hub.count(ChannelParticles) == 0 {
		t.Error("no particles broadcast in 50 lit ticks")
	}
	if len(f.syncer.synced) != 0 || len(f.syncer.events) != 0 {
		t.Error("presentation role published stove state")
	}
}

func TestSchedulerDoAndStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Role: config.RoleAuthoritative, TickInterval: time.Millisecond, PersistTicks: 1000})

	if err := f.sched.Do(ctx, func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Do() before Start error = %v, want ErrNotRunning", err)
	}

	f.sched.Start(ctx)

	var s *stove.Stove
	err := f.sched.Do(ctx, func() {
		var placeErr error
		s, placeErr = f.registry.Place(ctx, world.BlockPos{X: 1}, world.FacingEast)
		if placeErr != nil {
			t.Errorf("Place() error = %v", placeErr)
			return
		}
		cod := item.NewStack("cod", 1)
		s.AddItem(&cod)
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	// Stop flushes the pending write even though the batch interval is long.
	time.Sleep(20 * time.Millisecond)
	f.sched.Stop()

	stored, err := f.repo.GetByID(ctx, s.ID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	restored := stove.New(stored.ID, stored.Pos, stored.Facing)
	restored.Load(stored.Record)
	if restored.Occupied() != 1 {
		t.Errorf("persisted stove holds %d items, want 1", restored.Occupied())
	}

	f.syncer.mu.Lock()
	synced := len(f.syncer.synced)
	f.syncer.mu.Unlock()
	if synced == 0 {
		t.Error("nothing synced while running")
	}

	if err := f.sched.Do(ctx, func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Do() after Stop error = %v, want ErrNotRunning", err)
	}
}

func TestSchedulerRemoved(t *testing.T) {
	f := newFixture(t, Config{Role: config.RoleAuthoritative})
	f.sched.pending["stv-gone"] = nil

	f.sched.Removed("stv-gone")
	f.runOutbox()

	if _, ok := f.sched.pending["stv-gone"]; ok {
		t.Error("removed stove still pending")
	}
	if len(f.syncer.removed) != 1 || f.hub.count(ChannelStoveRemoved) != 1 {
		t.Errorf("removed = %v, hub = %v", f.syncer.removed, f.hub.channels)
	}
}

func TestPostQueueFull(t *testing.T) {
	f := newFixture(t, Config{Role: config.RolePresentation, QueueSize: 1})
	if !f.sched.Post(func() {}) {
		t.Fatal("first Post() = false")
	}
	if f.sched.Post(func() {}) {
		t.Error("Post() on a full queue = true")
	}
}

func TestStopRunsEveryQueuedCommand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Role: config.RolePresentation, TickInterval: time.Hour})
	f.sched.Start(ctx)

	entered := make(chan struct{})
	release := make(chan struct{})
	go f.sched.Do(ctx, func() { //nolint:errcheck // outcome checked through ran
		close(entered)
		<-release
	})
	<-entered

	const queued = 200
	ran := 0
	for i := 0; i < queued; i++ {
		if !f.sched.Post(func() { ran++ }) {
			t.Fatalf("Post() #%d = false", i)
		}
	}

	stopped := make(chan struct{})
	go func() {
		f.sched.Stop()
		close(stopped)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	<-stopped

	if ran != queued {
		t.Errorf("ran %d commands before exit, want %d", ran, queued)
	}
	if f.sched.Post(func() {}) {
		t.Error("Post() after Stop = true")
	}
	if err := f.sched.Do(ctx, func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Do() after Stop error = %v, want ErrNotRunning", err)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{Simulation: config.SimulationConfig{Role: config.RolePresentation, TickRate: 20, PersistInterval: 40}}
	got := ConfigFrom(cfg)
	if got.Role != config.RolePresentation || got.TickInterval != 50*time.Millisecond || got.PersistTicks != 40 {
		t.Errorf("ConfigFrom() = %+v", got)
	}
}
