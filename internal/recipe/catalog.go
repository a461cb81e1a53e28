package recipe

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/item"
)

// maxSuggestions caps the number of "did you mean" candidates returned by Suggest.
const maxSuggestions = 3

// Logger defines the logging interface used by the Catalog.
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

// Catalog holds recipes grouped by kind.
//
// Lookups return copies; a reload via Replace never invalidates a recipe a
// caller already holds. Devices that cache a recipe ID must re-look it up
// with RecipeByID and re-check Matches before trusting it.
//
// All public methods are thread-safe.
type Catalog struct {
	mu     sync.RWMutex
	byKind map[Kind][]Recipe          // Sorted by ID
	byID   map[Kind]map[string]Recipe // Kind -> ID -> recipe
	logger Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byKind: make(map[Kind][]Recipe),
		byID:   make(map[Kind]map[string]Recipe),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the catalog.
func (c *Catalog) SetLogger(logger Logger) {
	c.logger = logger
}

// Register validates and adds a recipe.
// Returns ErrRecipeExists if the kind already has a recipe with this ID.
func (c *Catalog) Register(r Recipe) error {
	if err := Validate(r); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[r.Kind][r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrRecipeExists, r.ID)
	}
	c.insert(r)
	return nil
}

// Replace swaps the whole catalog content for recipes.
// Either every recipe is valid and the swap happens, or nothing changes.
func (c *Catalog) Replace(recipes []Recipe) error {
	byKind := make(map[Kind][]Recipe)
	byID := make(map[Kind]map[string]Recipe)
	for _, r := range recipes {
		if err := Validate(r); err != nil {
			return err
		}
		if _, ok := byID[r.Kind][r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrRecipeExists, r.ID)
		}
		if byID[r.Kind] == nil {
			byID[r.Kind] = make(map[string]Recipe)
		}
		byID[r.Kind][r.ID] = r
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}
	for k := range byKind {
		sortByID(byKind[k])
	}

	c.mu.Lock()
	c.byKind = byKind
	c.byID = byID
	c.mu.Unlock()

	c.logger.Info("recipe catalog replaced", "count", len(recipes))
	return nil
}

// insert adds r; the caller holds the write lock.
func (c *Catalog) insert(r Recipe) {
	if c.byID[r.Kind] == nil {
		c.byID[r.Kind] = make(map[string]Recipe)
	}
	c.byID[r.Kind][r.ID] = r
	c.byKind[r.Kind] = append(c.byKind[r.Kind], r)
	sortByID(c.byKind[r.Kind])
}

// FindRecipe returns the first recipe of kind (in ID order) matching inputs.
func (c *Catalog) FindRecipe(kind Kind, inputs []item.Stack) (Recipe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.byKind[kind] {
		if r.Matches(inputs) {
			return r, true
		}
	}
	return Recipe{}, false
}

// RecipeByID returns the recipe of kind with the given ID.
func (c *Catalog) RecipeByID(kind Kind, id string) (Recipe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.byID[kind][id]
	return r, ok
}

// List returns the recipes of kind sorted by ID.
func (c *Catalog) List(kind Kind) []Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Recipe, len(c.byKind[kind]))
	copy(out, c.byKind[kind])
	return out
}

// Count returns the total number of recipes across kinds.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, rs := range c.byKind {
		n += len(rs)
	}
	return n
}

// KnownIngredient reports whether any recipe of kind accepts id.
func (c *Catalog) KnownIngredient(kind Kind, id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.byKind[kind] {
		if r.Accepts(id) {
			return true
		}
	}
	return false
}

// Suggest returns up to three ingredient IDs of kind close to id, nearest first.
// Used to answer requests naming an item no recipe accepts.
func (c *Catalog) Suggest(kind Kind, id string) []string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil
	}

	c.mu.RLock()
	seen := make(map[string]bool)
	for _, r := range c.byKind[kind] {
		for _, ing := range r.Ingredients {
			seen[ing] = true
		}
	}
	c.mu.RUnlock()

	type candidate struct {
		id   string
		dist int
	}
	var cands []candidate
	for ing := range seen {
		if strings.HasPrefix(ing, id) && len(id) >= 2 {
			cands = append(cands, candidate{id: ing, dist: 0})
			continue
		}
		dist := levenshtein.ComputeDistance(id, ing)
		if dist > levenshteinLimit(len(ing)) {
			continue
		}
		cands = append(cands, candidate{id: ing, dist: dist})
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].id < cands[j].id
		}
		return cands[i].dist < cands[j].dist
	})

	out := make([]string, 0, maxSuggestions)
	for _, cand := range cands {
		out = append(out, cand.id)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func sortByID(rs []Recipe) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

// FromConfig converts the recipe seed list from config.yaml.
// Entries without a kind are campfire cooking recipes; a missing result
// count means 1.
func FromConfig(cfgs []config.RecipeConfig) ([]Recipe, error) {
	out := make([]Recipe, 0, len(cfgs))
	for _, rc := range cfgs {
		kind := Kind(rc.Kind)
		if kind == "" {
			kind = KindCampfireCooking
		}
		count := rc.ResultCount
		if count == 0 && rc.Result != "" {
			count = 1
		}
		r := Recipe{
			ID:          rc.ID,
			Kind:        kind,
			Ingredients: append([]string(nil), rc.Ingredients...),
			Result:      item.NewStack(rc.Result, count),
			CookTime:    rc.CookTime,
		}
		if err := Validate(r); err != nil {
			return nil, fmt.Errorf("recipe %q: %w", rc.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Validate checks a recipe for structural problems.
func Validate(r Recipe) error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidRecipe)
	case r.Kind == "":
		return fmt.Errorf("%w: %s: kind is required", ErrInvalidRecipe, r.ID)
	case len(r.Ingredients) == 0:
		return fmt.Errorf("%w: %s: at least one ingredient is required", ErrInvalidRecipe, r.ID)
	case r.CookTime <= 0:
		return fmt.Errorf("%w: %s: cook_time must be positive, got %d", ErrInvalidRecipe, r.ID, r.CookTime)
	case r.Result.Count < 0:
		return fmt.Errorf("%w: %s: result count cannot be negative", ErrInvalidRecipe, r.ID)
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing) == "" {
			return fmt.Errorf("%w: %s: empty ingredient", ErrInvalidRecipe, r.ID)
		}
	}
	return nil
}
