package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/nerrad567/gray-hearth/internal/audit"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// setBlockRequest is the body of PUT /blocks.
type setBlockRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block"`
}

type blockView struct {
	Pos   world.BlockPos `json:"pos"`
	Block string         `json:"block"`
}

// handleListBlocks returns every non-air block.
func (s *Server) handleListBlocks(w http.ResponseWriter, _ *http.Request) {
	blocks := s.world.Blocks()
	out := make([]blockView, 0, len(blocks))
	for pos, name := range blocks {
		out = append(out, blockView{Pos: pos, Block: name})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	writeJSON(w, http.StatusOK, map[string]any{"blocks": out, "count": len(out)})
}

// handleSetBlock places or clears a block. Placing a solid block above a
// stove obstructs it; the next tick ejects its contents.
func (s *Server) handleSetBlock(w http.ResponseWriter, r *http.Request) {
	var req setBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	req.Block = strings.ToLower(strings.TrimSpace(req.Block))
	if req.Block == "" {
		req.Block = world.BlockAir
	}
	if !world.KnownBlock(req.Block) {
		writeBadRequest(w, world.ErrUnknownBlock.Error()+": "+req.Block)
		return
	}
	if req.Block == world.BlockStove {
		writeBadRequest(w, "stoves are placed with POST /stoves")
		return
	}
	pos := world.BlockPos{X: req.X, Y: req.Y, Z: req.Z}
	if _, ok := s.registry.At(pos); ok {
		writeConflict(w, "a stove occupies "+pos.String())
		return
	}

	if s.blocks != nil {
		if err := s.blocks.Put(r.Context(), pos, req.Block); err != nil {
			s.logger.Error("failed to store block", "pos", pos.String(), "error", err)
			writeInternalError(w, "failed to store block")
			return
		}
	}
	// Re-check on the tick goroutine: a stove may have been placed since.
	var occupied bool
	ok := s.run(w, r, func() {
		if _, occupied = s.registry.At(pos); !occupied {
			s.world.SetBlock(pos, req.Block)
		}
	})
	if !ok {
		return
	}
	if occupied {
		writeConflict(w, "a stove occupies "+pos.String())
		return
	}

	s.record(r, audit.ActionBlockSet, pos.String(), map[string]any{"block": req.Block})
	writeJSON(w, http.StatusOK, blockView{Pos: pos, Block: req.Block})
}
