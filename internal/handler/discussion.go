package handler

import (
	"log/slog"
	"net/http"

	"github.com/reardon/codeverse/internal/auth"
	"github.com/reardon/codeverse/internal/service"
)

// DiscussionHandler serves per-project comment boards.
type DiscussionHandler struct {
	discussions *service.DiscussionService
	logger      *slog.Logger
}

func NewDiscussionHandler(discussions *service.DiscussionService, logger *slog.Logger) *DiscussionHandler {
	return &DiscussionHandler{discussions: discussions, logger: logger}
}

type postDiscussionRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
}

// HandleList returns a project's comments, newest first.
//
// HTTP: GET /api/projects/{id}/discussions
func (h *DiscussionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	discussions, err := h.discussions.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, discussions)
}

// HandlePost adds a comment.
//
// HTTP: POST /api/projects/{id}/discussions (auth)
func (h *DiscussionHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req postDiscussionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	discussion, err := h.discussions.Post(r.Context(), actorID, id, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, discussion)
}
