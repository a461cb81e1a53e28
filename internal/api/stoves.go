package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-hearth/internal/audit"
	"github.com/nerrad567/gray-hearth/internal/item"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// maxItemsPerRequest bounds the count of a single add-items request.
const maxItemsPerRequest = 64

// placeStoveRequest is the body of POST /stoves.
type placeStoveRequest struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	Facing string `json:"facing"`
}

// setLitRequest is the body of PUT /stoves/{id}/lit.
type setLitRequest struct {
	Lit *bool `json:"lit"`
}

// addItemsRequest is the body of POST /stoves/{id}/items.
type addItemsRequest struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// addItemsResponse reports how many units a stove took.
type addItemsResponse struct {
	Accepted  int            `json:"accepted"`
	Remaining int            `json:"remaining"`
	Stove     stove.Snapshot `json:"stove"`
}

// run executes fn on the tick goroutine, translating queue failures into
// a 503. It reports whether fn ran.
func (s *Server) run(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := s.exec.Do(r.Context(), fn); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		s.logger.Warn("stove command rejected", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "simulation busy, retry shortly")
		return false
	}
	return true
}

// handleListStoves returns a snapshot of every stove.
func (s *Server) handleListStoves(w http.ResponseWriter, r *http.Request) {
	var snaps []stove.Snapshot
	if !s.run(w, r, func() {
		list := s.registry.List()
		snaps = make([]stove.Snapshot, 0, len(list))
		for _, st := range list {
			snaps = append(snaps, st.Snapshot())
		}
	}) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stoves": snaps,
		"count":  len(snaps),
	})
}

// handleGetStove returns one stove.
func (s *Server) handleGetStove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		snap stove.Snapshot
		err  error
	)
	if !s.run(w, r, func() {
		var st *stove.Stove
		if st, err = s.registry.Get(id); err == nil {
			snap = st.Snapshot()
		}
	}) {
		return
	}
	if err != nil {
		writeNotFound(w, "stove not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePlaceStove places a new, empty, unlit stove.
func (s *Server) handlePlaceStove(w http.ResponseWriter, r *http.Request) {
	var req placeStoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	facing, err := world.ParseFacing(req.Facing)
	if err != nil {
		writeBadRequest(w, "facing must be north, south, east or west")
		return
	}
	pos := world.BlockPos{X: req.X, Y: req.Y, Z: req.Z}

	var snap stove.Snapshot
	if !s.run(w, r, func() {
		var st *stove.Stove
		if st, err = s.registry.Place(r.Context(), pos, facing); err == nil {
			snap = st.Snapshot()
		}
	}) {
		return
	}

	switch {
	case errors.Is(err, stove.ErrPositionOccupied), errors.Is(err, stove.ErrStoveExists):
		writeConflict(w, "a stove already occupies "+pos.String())
	case errors.Is(err, stove.ErrPositionBlocked):
		writeConflict(w, pos.String()+" is not air")
	case err != nil:
		s.logger.Error("failed to place stove", "pos", pos.String(), "error", err)
		writeInternalError(w, "failed to place stove")
	default:
		s.record(r, audit.ActionStovePlace, snap.ID, map[string]any{"pos": pos.String(), "facing": snap.Facing})
		writeJSON(w, http.StatusCreated, snap)
	}
}

// handleRemoveStove removes a stove, dropping its contents into the world.
func (s *Server) handleRemoveStove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var err error
	if !s.run(w, r, func() {
		if _, err = s.registry.Remove(r.Context(), id); err == nil {
			s.exec.Removed(id)
		}
	}) {
		return
	}

	switch {
	case errors.Is(err, stove.ErrStoveNotFound):
		writeNotFound(w, "stove not found")
	case err != nil:
		s.logger.Error("failed to remove stove", "id", id, "error", err)
		writeInternalError(w, "failed to remove stove")
	default:
		s.record(r, audit.ActionStoveRemove, id, nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSetLit lights or extinguishes a stove.
func (s *Server) handleSetLit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setLitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.Lit == nil {
		writeBadRequest(w, "lit is required")
		return
	}

	var (
		snap stove.Snapshot
		err  error
	)
	if !s.run(w, r, func() {
		var st *stove.Stove
		if st, err = s.registry.Get(id); err == nil {
			st.SetLit(*req.Lit)
			snap = st.Snapshot()
		}
	}) {
		return
	}
	if err != nil {
		writeNotFound(w, "stove not found")
		return
	}
	s.record(r, audit.ActionStoveLit, id, map[string]any{"lit": *req.Lit})
	writeJSON(w, http.StatusOK, snap)
}

// handleAddItems inserts up to count units of an item, one per free slot
// that accepts it.
func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	req.Item = strings.ToLower(strings.TrimSpace(req.Item))
	if req.Item == "" {
		writeBadRequest(w, "item is required")
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 0 || req.Count > maxItemsPerRequest {
		writeBadRequest(w, "count must be between 1 and 64")
		return
	}

	if !s.catalog.KnownIngredient(recipe.KindCampfireCooking, req.Item) {
		writeJSON(w, http.StatusNotFound, Error{
			Status:      http.StatusNotFound,
			Code:        ErrCodeNotFound,
			Message:     "no cooking recipe accepts " + req.Item,
			Suggestions: s.catalog.Suggest(recipe.KindCampfireCooking, req.Item),
		})
		return
	}

	var (
		resp addItemsResponse
		err  error
	)
	if !s.run(w, r, func() {
		var st *stove.Stove
		if st, err = s.registry.Get(id); err != nil {
			return
		}
		stack := item.NewStack(req.Item, req.Count)
		for !stack.IsEmpty() && st.AddItem(&stack) {
			resp.Accepted++
		}
		resp.Remaining = stack.Count
		resp.Stove = st.Snapshot()
	}) {
		return
	}
	if err != nil {
		writeNotFound(w, "stove not found")
		return
	}
	if resp.Accepted > 0 {
		s.record(r, audit.ActionStoveItems, id, map[string]any{"item": req.Item, "accepted": resp.Accepted})
	}
	writeJSON(w, http.StatusOK, resp)
}
