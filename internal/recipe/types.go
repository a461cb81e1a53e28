package recipe

import (
	"github.com/nerrad567/gray-hearth/internal/item"
)

// Kind is the category of transformation rules a device consults.
type Kind string

const (
	// KindCampfireCooking is heat-based single-input conversion, used by stoves.
	KindCampfireCooking Kind = "campfire_cooking"

	// KindSmelting is furnace smelting. Stoves never consult it; it exists so
	// a catalog can hold several kinds and lookups stay kind-scoped.
	KindSmelting Kind = "smelting"
)

// defaultCampfireCookTime is the cook time of the built-in campfire recipes (30s at 20 ticks/s).
const defaultCampfireCookTime = 600

// Recipe is a single-input cooking rule.
type Recipe struct {
	// ID is stable across catalog reloads and is what devices cache.
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	// Ingredients lists the item IDs accepted as the sole input.
	Ingredients []string `json:"ingredients"`

	// Result is produced when cooking completes. It may be empty.
	Result item.Stack `json:"result"`

	// CookTime is the number of ticks required.
	CookTime int `json:"cook_time"`
}

// Matches reports whether inputs satisfy this recipe: exactly one non-empty
// stack whose item is one of the accepted ingredients.
func (r Recipe) Matches(inputs []item.Stack) bool {
	var input item.Stack
	found := 0
	for _, s := range inputs {
		if s.IsEmpty() {
			continue
		}
		input = s
		found++
	}
	if found != 1 {
		return false
	}
	return r.Accepts(input.Item)
}

// Accepts reports whether id is one of the recipe's ingredients.
func (r Recipe) Accepts(id string) bool {
	for _, ing := range r.Ingredients {
		if ing == id {
			return true
		}
	}
	return false
}

// DefaultRecipes returns the built-in campfire cooking recipes.
func DefaultRecipes() []Recipe {
	cook := func(id, in, out string) Recipe {
		return Recipe{
			ID:          id,
			Kind:        KindCampfireCooking,
			Ingredients: []string{in},
			Result:      item.NewStack(out, 1),
			CookTime:    defaultCampfireCookTime,
		}
	}
	return []Recipe{
		cook("cooked_beef_from_campfire_cooking", "beef", "cooked_beef"),
		cook("cooked_chicken_from_campfire_cooking", "chicken", "cooked_chicken"),
		cook("cooked_cod_from_campfire_cooking", "cod", "cooked_cod"),
		cook("cooked_mutton_from_campfire_cooking", "mutton", "cooked_mutton"),
		cook("cooked_porkchop_from_campfire_cooking", "porkchop", "cooked_porkchop"),
		cook("cooked_rabbit_from_campfire_cooking", "rabbit", "cooked_rabbit"),
		cook("cooked_salmon_from_campfire_cooking", "salmon", "cooked_salmon"),
		cook("baked_potato_from_campfire_cooking", "potato", "baked_potato"),
		cook("dried_kelp_from_campfire_cooking", "kelp", "dried_kelp"),
	}
}
