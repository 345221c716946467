package handler

import (
	"log/slog"
	"net/http"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/auth"
	"github.com/reardon/codeverse/internal/service"
)

// ActivityHandler serves the activity feeds.
type ActivityHandler struct {
	activities *service.ActivityService
	logger     *slog.Logger
}

func NewActivityHandler(activities *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

// HandleFeed serves the global feed, or the local (self + friends) feed
// when ?type=local. The local feed needs a signed-in caller.
//
// HTTP: GET /api/activity?type=local|global
func (h *ActivityHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("type") == "local" {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeError(w, apperror.Unauthorized("sign in to see your local feed"))
			return
		}
		feed, err := h.activities.LocalFeed(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, feed)
		return
	}

	feed, err := h.activities.GlobalFeed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandleSearch matches feed messages by substring.
//
// HTTP: GET /api/activity/search?q=
func (h *ActivityHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.activities.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
