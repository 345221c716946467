package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/auth"
	"github.com/reardon/codeverse/internal/service"
)

// UserHandler serves profiles, search, the friend graph and bookmarks.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type updateProfileRequest struct {
	Name   string `json:"name" validate:"max=100"`
	Bio    string `json:"bio" validate:"max=500"`
	Avatar string `json:"avatar" validate:"max=500"`
}

type friendActionRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// HandleSearch finds users by name, username or email substring.
//
// HTTP: GET /api/users/search?q=
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGetByUsername returns a public profile.
//
// HTTP: GET /api/users/{username}
func (h *UserHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate changes the caller's own profile fields.
//
// HTTP: PUT /api/users/{id} (auth, self)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), actorID, id, req.Name, req.Bio, req.Avatar)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes the caller's own account.
//
// HTTP: DELETE /api/users/{id} (auth, self)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	if err := h.users.DeleteAccount(r.Context(), actorID, id); err != nil {
		writeError(w, err)
		return
	}
	clearCookie(w, auth.CookieName)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleFriends lists a user's friends as full user records.
//
// HTTP: GET /api/users/{id}/friends
func (h *UserHandler) HandleFriends(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	friends, err := h.users.Friends(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

// HandleSendFriendRequest sends a request from the caller to the user named
// in the body.
//
// HTTP: POST /api/users/friend-request (auth)
func (h *UserHandler) HandleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.users.SendFriendRequest)
}

// HandleAcceptFriendRequest accepts a pending request from the user named
// in the body.
//
// HTTP: POST /api/users/accept-friend (auth)
func (h *UserHandler) HandleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.users.AcceptFriendRequest)
}

// HandleDeclineFriendRequest declines a pending request.
//
// HTTP: POST /api/users/decline-friend (auth)
func (h *UserHandler) HandleDeclineFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.users.DeclineFriendRequest)
}

// HandleUnfriend removes a friendship in both directions.
//
// HTTP: POST /api/users/unfriend (auth)
func (h *UserHandler) HandleUnfriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.users.Unfriend)
}

// friendAction is the shared shape of the four friend-graph endpoints: the
// authenticated caller acts on the user ID named in the body.
func (h *UserHandler) friendAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, actorID, otherID string) error) {

	actorID, _ := auth.UserIDFromContext(r.Context())

	var req friendActionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := action(r.Context(), actorID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleSaveProject bookmarks a project for the caller.
//
// HTTP: POST /api/users/{id}/saved/{projectId} (auth, self)
func (h *UserHandler) HandleSaveProject(w http.ResponseWriter, r *http.Request) {
	h.savedAction(w, r, h.users.SaveProject)
}

// HandleUnsaveProject removes a bookmark.
//
// HTTP: DELETE /api/users/{id}/saved/{projectId} (auth, self)
func (h *UserHandler) HandleUnsaveProject(w http.ResponseWriter, r *http.Request) {
	h.savedAction(w, r, h.users.UnsaveProject)
}

func (h *UserHandler) savedAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, userID, projectID string) error) {

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}

	actorID, _ := auth.UserIDFromContext(r.Context())
	if actorID != id {
		writeError(w, apperror.Forbidden("you can only manage your own saved projects"))
		return
	}

	if err := action(r.Context(), id, projectID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleSavedProjects lists the caller's bookmarked projects.
//
// HTTP: GET /api/users/{id}/saved (auth, self)
func (h *UserHandler) HandleSavedProjects(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())
	if actorID != id {
		writeError(w, apperror.Forbidden("you can only view your own saved projects"))
		return
	}

	projects, err := h.users.SavedProjects(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}
