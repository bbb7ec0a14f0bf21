package http

import (
	"fmt"
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	kind, err := parseRangeKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	// keyed by user, range and day so midnight rollover invalidates
	key := summaryCacheKey(identity.UserID, string(kind), s.today())
	if cached, ok := s.summaryCache.Get(key); ok {
		writeData(w, http.StatusOK, toSummaryJSON(cached))
		return
	}

	summary, err := s.service.Summarize(r.Context(), identity.UserID, kind, s.today())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "summary failed",
			log.FieldError, err, log.FieldUserID, identity.UserID)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	s.summaryCache.Set(key, summary)
	writeData(w, http.StatusOK, toSummaryJSON(summary))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, core.Categories())
}

func summaryCacheKey(userID, kind string, today core.Date) string {
	return fmt.Sprintf("%s:%s:%s", userID, kind, today)
}

// invalidateSummaries drops every cached summary for the user after one of
// their expenses changes.
func (s *Server) invalidateSummaries(userID string) {
	s.summaryCache.DeletePrefix(userID + ":")
}
