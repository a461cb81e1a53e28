package api

import (
	"net/http"

	"github.com/nerrad567/gray-hearth/internal/recipe"
)

// handleListRecipes returns the recipes stoves cook from.
func (s *Server) handleListRecipes(w http.ResponseWriter, _ *http.Request) {
	recipes := s.catalog.List(recipe.KindCampfireCooking)
	writeJSON(w, http.StatusOK, map[string]any{
		"recipes": recipes,
		"count":   len(recipes),
	})
}
