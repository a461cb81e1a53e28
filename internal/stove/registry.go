package stove

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-hearth/internal/world"
)

// idPrefix marks stove identifiers.
const idPrefix = "stv-"

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry tracks the stoves placed in one level.
//
// The map itself is safe for concurrent use. The stoves it hands out are
// not: callers mutate them only from the goroutine that ticks them.
//
// A Registry with a nil repository keeps stoves in memory only; presentation
// replicas use one this way.
type Registry struct {
	repo     Repository
	level    Level
	terrain  Terrain // nil when the level has no block map
	mu       sync.RWMutex
	stoves   map[string]*Stove
	byPos    map[world.BlockPos]string
	observer func(CookEvent)
	logger   Logger
}

// NewRegistry creates a registry whose stoves attach to level.
func NewRegistry(repo Repository, level Level) *Registry {
	terrain, _ := level.(Terrain)
	return &Registry{
		repo:    repo,
		level:   level,
		terrain: terrain,
		stoves:  make(map[string]*Stove),
		byPos:   make(map[world.BlockPos]string),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver installs fn as the cook-event observer on every current and
// future stove.
func (r *Registry) SetObserver(fn func(CookEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
	for _, s := range r.stoves {
		s.SetObserver(fn)
	}
}

// GenerateID returns a new stove identifier.
func GenerateID() string {
	return idPrefix + uuid.New().String()[:8]
}

// RefreshCache reloads every stove from the repository.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	stored, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading stoves: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for pos := range r.byPos {
		r.setBlock(pos, world.BlockAir)
	}
	r.stoves = make(map[string]*Stove, len(stored))
	r.byPos = make(map[world.BlockPos]string, len(stored))
	for i := range stored {
		r.insertLocked(r.fromStored(&stored[i]))
	}

	r.logger.Info("stove cache refreshed", "count", len(stored))
	return nil
}

// Place creates an empty, unlit stove at pos and writes its block into the
// terrain. Returns ErrPositionOccupied if a stove already stands there and
// ErrPositionBlocked if another block does.
func (r *Registry) Place(ctx context.Context, pos world.BlockPos, facing world.Facing) (*Stove, error) {
	r.mu.RLock()
	_, taken := r.byPos[pos]
	r.mu.RUnlock()
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrPositionOccupied, pos)
	}
	if r.terrain != nil {
		if b := r.terrain.Block(pos); b != world.BlockAir {
			return nil, fmt.Errorf("%w: %s is %s", ErrPositionBlocked, pos, b)
		}
	}

	s := New(GenerateID(), pos, facing)
	if r.repo != nil {
		rec, err := s.Save()
		if err != nil {
			return nil, err
		}
		if err := r.repo.Create(ctx, &Stored{ID: s.id, Pos: pos, Facing: facing, Record: rec}); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	if _, taken := r.byPos[pos]; taken {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPositionOccupied, pos)
	}
	r.attachLocked(s)
	r.insertLocked(s)
	r.mu.Unlock()

	r.logger.Info("stove placed", "id", s.id, "pos", pos.String(), "facing", facing.String())
	return s, nil
}

// Get returns the stove with id.
// Returns ErrStoveNotFound if the stove does not exist.
func (r *Registry) Get(id string) (*Stove, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stoves[id]
	if !ok {
		return nil, ErrStoveNotFound
	}
	return s, nil
}

// At returns the stove standing at pos.
func (r *Registry) At(pos world.BlockPos) (*Stove, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPos[pos]
	if !ok {
		return nil, false
	}
	return r.stoves[id], true
}

// List returns every stove ordered by ID.
func (r *Registry) List() []*Stove {
	r.mu.RLock()
	out := make([]*Stove, 0, len(r.stoves))
	for _, s := range r.stoves {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of placed stoves.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stoves)
}

// Remove breaks the stove with id. Held items are dropped into the world.
func (r *Registry) Remove(ctx context.Context, id string) (*Stove, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if r.repo != nil {
		if err := r.repo.Delete(ctx, id); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	delete(r.stoves, id)
	delete(r.byPos, s.pos)
	r.mu.Unlock()
	r.setBlock(s.pos, world.BlockAir)

	s.DropContents()
	s.Attach(nil)
	s.SetObserver(nil)

	r.logger.Info("stove removed", "id", id)
	return s, nil
}

// Persist writes the stove's block state and record to the repository.
func (r *Registry) Persist(ctx context.Context, s *Stove) error {
	if r.repo == nil {
		return nil
	}
	rec, err := s.Save()
	if err != nil {
		return err
	}
	if err := r.repo.Save(ctx, &Stored{ID: s.id, Pos: s.pos, Facing: s.facing, Lit: s.lit, Record: rec}); err != nil {
		return fmt.Errorf("persisting stove %s: %w", s.id, err)
	}
	r.logger.Debug("stove persisted", "id", s.id)
	return nil
}

// Apply creates or updates a replica from synced state. Existing stoves
// keep their identity; their block state and record are overwritten.
func (r *Registry) Apply(st Stored) *Stove {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stoves[st.ID]; ok {
		if s.pos != st.Pos {
			delete(r.byPos, s.pos)
			r.setBlock(s.pos, world.BlockAir)
			s.pos = st.Pos
			r.byPos[s.pos] = s.id
			r.setBlock(s.pos, world.BlockStove)
		}
		s.facing = st.Facing
		s.lit = st.Lit
		s.Load(st.Record)
		return s
	}

	s := r.fromStored(&st)
	r.insertLocked(s)
	return s
}

// Forget drops a stove from memory and clears its block, without touching
// the repository or dropping its contents. Replicas use it when the authoritative side removes a stove.
func (r *Registry) Forget(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stoves[id]
	if !ok {
		return false
	}
	delete(r.stoves, id)
	delete(r.byPos, s.pos)
	r.setBlock(s.pos, world.BlockAir)
	s.Attach(nil)
	return true
}

// fromStored builds an attached stove; the caller holds the write lock.
func (r *Registry) fromStored(st *Stored) *Stove {
	s := New(st.ID, st.Pos, st.Facing)
	s.lit = st.Lit
	s.Load(st.Record)
	r.attachLocked(s)
	return s
}

func (r *Registry) attachLocked(s *Stove) {
	s.Attach(r.level)
	s.SetObserver(r.observer)
}

func (r *Registry) insertLocked(s *Stove) {
	r.stoves[s.id] = s
	r.byPos[s.pos] = s.id
	r.setBlock(s.pos, world.BlockStove)
}

// setBlock keeps the terrain in step with stove placement. The world has
// its own lock, so it is safe to call with r.mu held.
func (r *Registry) setBlock(pos world.BlockPos, name string) {
	if r.terrain != nil {
		r.terrain.SetBlock(pos, name)
	}
}
