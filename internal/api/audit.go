package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-hearth/internal/audit"
	"github.com/nerrad567/gray-hearth/internal/auth"
)

// record appends an audit entry for an accepted mutation. Failures are
// logged; the mutation has already happened.
func (s *Server) record(r *http.Request, action, target string, details map[string]any) {
	if s.audit == nil {
		return
	}
	e := &audit.Entry{Action: action, Target: target, Details: details}
	if claims, ok := r.Context().Value(ctxKeyClaims).(*auth.CustomClaims); ok {
		e.Subject = claims.Subject
	}
	if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok {
		e.RequestID = id
	}
	if err := s.audit.Record(r.Context(), e); err != nil {
		s.logger.Error("failed to record audit entry", "action", action, "target", target, "error", err)
	}
}

// handleListAudit returns recorded mutations, newest first.
// Query parameters: action, target, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit log is not kept by this process")
		return
	}

	q := r.URL.Query()
	f := audit.Filter{Action: q.Get("action"), Target: q.Get("target")}
	var err error
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}

	page, err := s.audit.List(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
