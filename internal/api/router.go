package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-hearth/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/recipes", s.handleListRecipes)
		r.Get("/blocks", s.handleListBlocks)
		r.Get("/ws", s.handleWebSocket)

		r.Route("/stoves", func(r chi.Router) {
			r.Get("/", s.handleListStoves)
			r.With(s.mutating(auth.PermStoveManage)).Post("/", s.handlePlaceStove)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStove)
				r.With(s.mutating(auth.PermStoveManage)).Delete("/", s.handleRemoveStove)
				r.With(s.mutating(auth.PermStoveOperate)).Put("/lit", s.handleSetLit)
				r.With(s.mutating(auth.PermStoveOperate)).Post("/items", s.handleAddItems)
			})
		})

		r.With(s.mutating(auth.PermWorldEdit)).Put("/blocks", s.handleSetBlock)

		r.With(s.guarded(auth.PermAuditRead)).Get("/audit", s.handleListAudit)
	})

	return r
}

// guarded requires a token granting perm when a signing secret is configured.
func (s *Server) guarded(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return s.authMiddleware(s.requirePermission(perm, next))
	}
}

// mutating guards a route that changes state. Replicas refuse it outright.
func (s *Server) mutating(perm auth.Permission) func(http.Handler) http.Handler {
	guard := s.guarded(perm)
	return func(next http.Handler) http.Handler {
		return s.readOnlyMiddleware(guard(next))
	}
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	role := "authoritative"
	if s.readOnly {
		role = "presentation"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"role":    role,
		"stoves":  s.registry.Count(),
	})
}
