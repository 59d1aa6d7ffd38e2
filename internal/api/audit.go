package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/accounthub/internal/audit"
)

// handleListAudit returns a page of the audit trail, admin only.
//
// Query parameters: event (exact name), subject (principal ID), limit,
// offset. Limits are clamped by the repository.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		Event:     q.Get("event"),
		SubjectID: q.Get("subject"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v) //nolint:errcheck // zero falls back to the default page size
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v) //nolint:errcheck // zero offset on parse failure
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list audit trail failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed execute task", nil)
		return
	}

	writeSuccess(w, http.StatusOK, "Success get audit trail", result)
}
