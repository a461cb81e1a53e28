package world

import (
	"math/rand/v2"
	"sync"

	"github.com/nerrad567/gray-hearth/internal/item"
)

// Particle kinds.
const (
	ParticleSmoke = "smoke"
)

// maxBufferedParticles bounds the particle buffer between drains.
const maxBufferedParticles = 4096

// ItemEntity is an item stack lying in the world.
type ItemEntity struct {
	ID       int64      `json:"id"`
	Stack    item.Stack `json:"stack"`
	Pos      Vec3       `json:"pos"`
	Velocity Vec3       `json:"velocity"`
}

// Particle is a purely visual effect emitted on the presentation side.
type Particle struct {
	Kind     string `json:"kind"`
	Pos      Vec3   `json:"pos"`
	Velocity Vec3   `json:"velocity"`
}

// World is a sparse voxel level: blocks, loose item entities and particles.
//
// Unset positions are air. The world is owned by the tick goroutine; the
// mutex only guards reads from API handlers.
type World struct {
	mu        sync.RWMutex
	blocks    map[BlockPos]string
	rng       *rand.Rand
	entities  []ItemEntity
	nextID    int64
	particles []Particle
	dropped   int // particles discarded because the buffer was full
}

// New creates an empty world whose randomness is derived from seed.
func New(seed uint64) *World {
	return &World{
		blocks: make(map[BlockPos]string, 256),
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// SetBlock places the named block at pos. Setting air removes the block.
func (w *World) SetBlock(pos BlockPos, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" || name == BlockAir {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = name
}

// Block returns the name of the block at pos.
func (w *World) Block(pos BlockPos) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if name, ok := w.blocks[pos]; ok {
		return name
	}
	return BlockAir
}

// IsObstructedAbove reports whether the block above pos intersects area,
// a box in the local coordinates of that upper block.
func (w *World) IsObstructedAbove(pos BlockPos, area Box) bool {
	return ShapeOf(w.Block(pos.Above())).Intersects(area)
}

// SpawnItem adds a loose item entity to the world.
func (w *World) SpawnItem(pos Vec3, velocity Vec3, stack item.Stack) {
	if stack.IsEmpty() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	w.entities = append(w.entities, ItemEntity{
		ID:       w.nextID,
		Stack:    stack,
		Pos:      pos,
		Velocity: velocity,
	})
}

// AddParticles buffers count particles of kind for the presentation layer.
func (w *World) AddParticles(kind string, pos Vec3, velocity Vec3, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < count; i++ {
		if len(w.particles) >= maxBufferedParticles {
			w.dropped++
			continue
		}
		w.particles = append(w.particles, Particle{Kind: kind, Pos: pos, Velocity: velocity})
	}
}

// RandomFloat returns a uniform value in [0, 1).
func (w *World) RandomFloat() float64 {
	return w.rng.Float64()
}

// RandomGaussian returns a standard normally distributed value.
func (w *World) RandomGaussian() float64 {
	return w.rng.NormFloat64()
}

// Entities returns a copy of the loose item entities.
func (w *World) Entities() []ItemEntity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ItemEntity, len(w.entities))
	copy(out, w.entities)
	return out
}

// TakeEntities removes and returns every loose item entity.
func (w *World) TakeEntities() []ItemEntity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.entities
	w.entities = nil
	return out
}

// DrainParticles removes and returns the buffered particles along with the
// number discarded since the last drain.
func (w *World) DrainParticles() (particles []Particle, dropped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	particles, dropped = w.particles, w.dropped
	w.particles = nil
	w.dropped = 0
	return particles, dropped
}

// Blocks returns a copy of every non-air block.
func (w *World) Blocks() map[BlockPos]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[BlockPos]string, len(w.blocks))
	for pos, name := range w.blocks {
		out[pos] = name
	}
	return out
}
