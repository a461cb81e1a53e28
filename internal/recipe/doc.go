// Package recipe provides the recipe catalog consulted by cooking devices.
//
// A Catalog groups recipes by Kind. Devices look recipes up two ways:
//
//   - FindRecipe scans every recipe of a kind for the first match (ID order)
//   - RecipeByID fetches one recipe by its stable ID, for devices that cached it
//
// The catalog is populated from DefaultRecipes plus the recipes section of
// config.yaml:
//
//	recipes:
//	  - id: "fried_egg_from_campfire_cooking"
//	    ingredients: ["egg"]
//	    result: "fried_egg"
//	    cook_time: 200
//
// Suggest offers "did you mean" candidates for unknown ingredient IDs using
// Levenshtein distance.
package recipe
