package handler

import (
	"log/slog"
	"net/http"

	"github.com/reardon/codeverse/internal/auth"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/service"
)

// ProjectHandler serves project CRUD, membership and the checkout/check-in
// endpoints.
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *slog.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

type projectFileRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Content string `json:"content"`
}

type createProjectRequest struct {
	Name        string               `json:"name" validate:"required,max=100"`
	Description string               `json:"description" validate:"max=2000"`
	Type        string               `json:"type" validate:"max=50"`
	Languages   []string             `json:"languages" validate:"max=20,dive,max=50"`
	Files       []projectFileRequest `json:"files" validate:"max=100,dive"`
}

type updateProjectRequest struct {
	Name        string   `json:"name" validate:"max=100"`
	Description string   `json:"description" validate:"max=2000"`
	Type        string   `json:"type" validate:"max=50"`
	Languages   []string `json:"languages" validate:"max=20,dive,max=50"`
}

type checkInRequest struct {
	Files   []projectFileRequest `json:"files" validate:"max=100,dive"`
	Message string               `json:"message" validate:"required,max=1000"`
	Version string               `json:"version" validate:"max=50"`
}

type memberRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func toModelFiles(files []projectFileRequest) []model.ProjectFile {
	out := make([]model.ProjectFile, len(files))
	for i, f := range files {
		out[i] = model.ProjectFile{Name: f.Name, Content: f.Content}
	}
	return out
}

// HandleCreate creates a project owned by the caller.
//
// HTTP: POST /api/projects (auth)
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req createProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projects.Create(r.Context(), actorID, req.Name, req.Description,
		req.Type, req.Languages, toModelFiles(req.Files))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// HandleGet returns one project.
//
// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleFeatured lists all projects, newest first.
//
// HTTP: GET /api/projects/featured
func (h *ProjectHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.Featured(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleSearch finds projects by name, description, type or language.
//
// HTTP: GET /api/projects/search?q=
func (h *ProjectHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleUpdate modifies project metadata. Owner only.
//
// HTTP: PUT /api/projects/{id} (auth)
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req updateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projects.Update(r.Context(), actorID, id, req.Name, req.Description,
		req.Type, req.Languages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleDelete removes a project. Owner only.
//
// HTTP: DELETE /api/projects/{id} (auth)
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	if err := h.projects.Delete(r.Context(), actorID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleCheckout acquires the exclusive lock for the caller.
//
// HTTP: POST /api/projects/{id}/checkout (auth, member)
func (h *ProjectHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	project, err := h.projects.Checkout(r.Context(), actorID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleCheckIn releases the lock, submitting new files and a message.
//
// HTTP: POST /api/projects/{id}/checkin (auth, lock holder)
func (h *ProjectHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req checkInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projects.CheckIn(r.Context(), actorID, id,
		toModelFiles(req.Files), req.Message, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleCheckIns lists a project's check-in history, newest first.
//
// HTTP: GET /api/projects/{id}/checkins
func (h *ProjectHandler) HandleCheckIns(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	checkins, err := h.projects.CheckInHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkins)
}

// HandleActivity lists a project's feed entries, newest first.
//
// HTTP: GET /api/projects/{id}/activity
func (h *ProjectHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	activities, err := h.projects.Activity(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// HandleAddMember grants membership. Owner only.
//
// HTTP: POST /api/projects/{id}/members (auth)
func (h *ProjectHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req memberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.projects.AddMember(r.Context(), actorID, id, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleRemoveMember revokes membership. Owner only.
//
// HTTP: DELETE /api/projects/{id}/members/{userId} (auth)
func (h *ProjectHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())

	if err := h.projects.RemoveMember(r.Context(), actorID, id, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
