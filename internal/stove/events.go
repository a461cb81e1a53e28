package stove

import "github.com/nerrad567/gray-hearth/internal/item"

// EventKind classifies a CookEvent.
type EventKind string

// Event kinds.
const (
	// EventCooked is a slot whose timer expired with a matching recipe.
	EventCooked EventKind = "cooked"

	// EventBurnt is a slot whose timer expired but no recipe matched any
	// more, typically because the catalog was reloaded. The input is lost.
	EventBurnt EventKind = "burnt"

	// EventEjected is an item thrown out because the grilling area was blocked.
	EventEjected EventKind = "ejected"
)

// CookEvent describes one slot leaving the occupied state.
type CookEvent struct {
	Kind     EventKind  `json:"kind"`
	StoveID  string     `json:"stove_id"`
	Slot     int        `json:"slot"`
	Input    item.Stack `json:"input"`
	RecipeID string     `json:"recipe_id,omitempty"`
	Result   item.Stack `json:"result"`
}

// Burnt reports whether the input was consumed without producing anything.
func (e CookEvent) Burnt() bool {
	return e.Kind == EventBurnt
}
