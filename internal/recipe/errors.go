package recipe

import "errors"

// Domain errors for the recipe package.
var (
	// ErrInvalidRecipe is returned when recipe validation fails.
	ErrInvalidRecipe = errors.New("recipe: invalid")

	// ErrRecipeExists is returned when registering a duplicate recipe ID within a kind.
	ErrRecipeExists = errors.New("recipe: already exists")
)
