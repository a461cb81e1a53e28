package stove

import (
	"encoding/json"

	"github.com/nerrad567/gray-hearth/internal/item"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// Stove geometry and tuning constants.
const (
	// SlotCount is the number of independent cooking slots.
	SlotCount = 6

	// slotLimit is the capacity of each slot.
	slotLimit = 1

	// cooldownPerTick is how far progress falls per tick while unlit.
	cooldownPerTick = 2

	// smokeChance is the per-slot, per-tick probability of a smoke puff while lit.
	smokeChance = 0.2

	// smokeParticles is the number of particles in one puff.
	smokeParticles = 3

	// smokeRiseSpeed is the upward velocity of smoke particles.
	smokeRiseSpeed = 5.0e-4

	// outputSpread scales the gaussian horizontal velocity of cooked items.
	outputSpread = 0.01

	// outputLift is the upward velocity of cooked items.
	outputLift = 0.1

	// Ejected items: spawn inside the block with a random margin, then fly
	// out with a gaussian spread and a small hop.
	ejectMargin = 0.125
	ejectRange  = 0.75
	ejectSpread = 0.05
	ejectLift   = 0.2
)

// cookingKind is the recipe kind stoves consult.
const cookingKind = recipe.KindCampfireCooking

// grillingArea is the region above the stove, in the upper block's local
// coordinates, that must be clear of collision geometry.
var grillingArea = world.Pixels(3, 0, 3, 13, 1, 13)

// World is the part of the level a stove reads and writes.
type World interface {
	IsObstructedAbove(pos world.BlockPos, area world.Box) bool
	SpawnItem(pos world.Vec3, velocity world.Vec3, stack item.Stack)
	AddParticles(kind string, pos world.Vec3, velocity world.Vec3, count int)
	RandomFloat() float64
	RandomGaussian() float64
}

// Catalog resolves cooking recipes.
type Catalog interface {
	FindRecipe(kind recipe.Kind, inputs []item.Stack) (recipe.Recipe, bool)
	RecipeByID(kind recipe.Kind, id string) (recipe.Recipe, bool)
}

// Level is the environment a placed stove is attached to: the world plus
// the recipe catalog that world uses.
type Level interface {
	World
	Recipes() Catalog
}

// Container is indexed item storage with a per-slot capacity.
type Container interface {
	Slots() int
	Get(i int) item.Stack
	Set(i int, s item.Stack)
	IsEmpty() bool
	Serialize() (json.RawMessage, error)
	Deserialize(data []byte) error
}

// slot holds the cooking progress of one position. The stack itself lives
// in the container at the same index.
type slot struct {
	cookTime      int
	cookTimeTotal int

	// lastRecipeID is a hint, revalidated against the slot contents on use.
	lastRecipeID  string
	hasLastRecipe bool
}

// Stove is a multi-slot cooking device.
//
// A Stove is not safe for concurrent use. The scheduler that owns it calls
// Advance on the authoritative side or EmitEffects on the presentation side,
// never both on the same instance.
type Stove struct {
	id     string
	pos    world.BlockPos
	facing world.Facing
	lit    bool

	inventory Container
	slots     []slot

	level    Level
	changed  bool
	observer func(CookEvent)
}

// New creates an empty, unlit stove. It does nothing until attached to a level.
func New(id string, pos world.BlockPos, facing world.Facing) *Stove {
	return &Stove{
		id:        id,
		pos:       pos,
		facing:    facing,
		inventory: item.NewHandler(SlotCount, slotLimit),
		slots:     make([]slot, SlotCount),
	}
}

// Attach binds the stove to a level. A nil level detaches it.
func (s *Stove) Attach(level Level) {
	s.level = level
}

// SetObserver registers a callback for cook completions and ejections.
func (s *Stove) SetObserver(fn func(CookEvent)) {
	s.observer = fn
}

// ID returns the stove's identifier.
func (s *Stove) ID() string { return s.id }

// Pos returns the stove's block position.
func (s *Stove) Pos() world.BlockPos { return s.pos }

// Facing returns the direction the stove faces.
func (s *Stove) Facing() world.Facing { return s.facing }

// Lit reports whether the stove is lit.
func (s *Stove) Lit() bool { return s.lit }

// SetLit changes the lit block-state flag.
func (s *Stove) SetLit(lit bool) {
	if s.lit != lit {
		s.lit = lit
		s.changed = true
	}
}

// SetFacing changes the facing block-state value.
func (s *Stove) SetFacing(f world.Facing) {
	if s.facing != f {
		s.facing = f
		s.changed = true
	}
}

// Inventory returns the stove's item container.
func (s *Stove) Inventory() Container { return s.inventory }

// TakeChanged reports whether state changed since the last call and resets the flag.
// The scheduler uses it to decide which stoves to persist and sync.
func (s *Stove) TakeChanged() bool {
	c := s.changed
	s.changed = false
	return c
}

// MarkChanged flags the stove for persistence and sync.
func (s *Stove) MarkChanged() {
	s.changed = true
}

// Advance runs one authoritative tick.
func (s *Stove) Advance() {
	if s.level == nil {
		return
	}

	switch {
	case s.level.IsObstructedAbove(s.pos, grillingArea):
		if !s.inventory.IsEmpty() {
			s.ejectAll()
			s.changed = true
		}
	case s.lit:
		s.cookAndOutputItems()
	default:
		s.coolDown()
	}
}

// EmitEffects runs one presentation tick: smoke above occupied slots while lit.
// It never mutates cooking state.
func (s *Stove) EmitEffects() {
	if s.level == nil || !s.lit {
		return
	}

	for i := range s.slots {
		if s.inventory.Get(i).IsEmpty() || s.level.RandomFloat() >= smokeChance {
			continue
		}
		pos := s.smokePosition(i)
		s.level.AddParticles(world.ParticleSmoke, pos, world.Vec3{Y: smokeRiseSpeed}, smokeParticles)
	}
}

// coolDown lets progress decay while the stove is unlit.
func (s *Stove) coolDown() {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.cookTime > 0 {
			sl.cookTime = clamp(sl.cookTime-cooldownPerTick, 0, sl.cookTimeTotal)
		}
	}
}

// cookAndOutputItems advances every occupied slot and completes the ones
// whose timer expired.
func (s *Stove) cookAndOutputItems() {
	changed := false
	for i := range s.slots {
		stack := s.inventory.Get(i)
		if stack.IsEmpty() {
			continue
		}

		sl := &s.slots[i]
		sl.cookTime++
		if sl.cookTime < sl.cookTimeTotal {
			continue
		}

		// The input is consumed whether or not a recipe still matches.
		ev := CookEvent{Kind: EventCooked, StoveID: s.id, Slot: i, Input: stack}
		if r, ok := s.matchingRecipe([]item.Stack{stack}, i); ok {
			ev.RecipeID = r.ID
			if !r.Result.IsEmpty() {
				ev.Result = r.Result.Copy()
				s.level.SpawnItem(s.pos.Center(1.0), world.Vec3{
					X: s.level.RandomGaussian() * outputSpread,
					Y: outputLift,
					Z: s.level.RandomGaussian() * outputSpread,
				}, ev.Result)
			}
		} else {
			ev.Kind = EventBurnt
		}
		s.inventory.Set(i, item.Empty)
		changed = true
		s.notify(ev)
	}

	if changed {
		s.changed = true
	}
}

// DropContents ejects every held item into the world, as when the stove is
// broken. It does nothing when detached.
func (s *Stove) DropContents() {
	if s.level == nil || s.inventory.IsEmpty() {
		return
	}
	s.ejectAll()
	s.changed = true
}

// ejectAll throws every held stack into the world and empties the slots.
func (s *Stove) ejectAll() {
	for i := range s.slots {
		stack := s.inventory.Get(i)
		if stack.IsEmpty() {
			continue
		}
		pos := world.Vec3{
			X: float64(s.pos.X) + s.level.RandomFloat()*ejectRange + ejectMargin,
			Y: float64(s.pos.Y) + s.level.RandomFloat()*ejectRange,
			Z: float64(s.pos.Z) + s.level.RandomFloat()*ejectRange + ejectMargin,
		}
		vel := world.Vec3{
			X: s.level.RandomGaussian() * ejectSpread,
			Y: s.level.RandomGaussian()*ejectSpread + ejectLift,
			Z: s.level.RandomGaussian() * ejectSpread,
		}
		s.level.SpawnItem(pos, vel, stack)
		s.inventory.Set(i, item.Empty)
		s.notify(CookEvent{Kind: EventEjected, StoveID: s.id, Slot: i, Input: stack})
	}
}

// AddItem moves one unit of stack into the first empty slot whose contents
// would match a cooking recipe. It reports whether an item was taken; on
// failure neither the stove nor stack is modified.
func (s *Stove) AddItem(stack *item.Stack) bool {
	if s.level == nil || stack == nil || stack.IsEmpty() {
		return false
	}

	for i := range s.slots {
		if !s.inventory.Get(i).IsEmpty() {
			continue
		}
		r, ok := s.matchingRecipe([]item.Stack{*stack}, i)
		if !ok {
			continue
		}

		sl := &s.slots[i]
		sl.cookTimeTotal = r.CookTime
		sl.cookTime = 0
		s.inventory.Set(i, stack.Split(1))
		sl.lastRecipeID, sl.hasLastRecipe = r.ID, true
		s.changed = true
		return true
	}
	return false
}

// matchingRecipe resolves the cooking recipe for inputs, trying the slot's
// cached recipe before a full catalog search. Only the cache is mutated.
func (s *Stove) matchingRecipe(inputs []item.Stack, i int) (recipe.Recipe, bool) {
	if s.level == nil {
		return recipe.Recipe{}, false
	}
	catalog := s.level.Recipes()
	if catalog == nil {
		return recipe.Recipe{}, false
	}

	sl := &s.slots[i]
	if sl.hasLastRecipe {
		if r, ok := catalog.RecipeByID(cookingKind, sl.lastRecipeID); ok && r.Matches(inputs) {
			return r, true
		}
	}

	if r, ok := catalog.FindRecipe(cookingKind, inputs); ok {
		sl.lastRecipeID, sl.hasLastRecipe = r.ID, true
		return r, true
	}
	return recipe.Recipe{}, false
}

// notify delivers ev to the observer, if any.
func (s *Stove) notify(ev CookEvent) {
	if s.observer != nil {
		s.observer(ev)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
