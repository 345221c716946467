package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

const (
	MaxProjectNameLength = 100
	MaxMessageLength     = 1000
	MaxFileCount         = 100
	MaxFileSize          = 200000 // bytes of content per file
)

// ProjectService owns project CRUD, membership and the checkout/check-in
// lock.
//
// The lock itself lives in the store: Checkout and Checkin are single
// conditional updates, and the store appends the CheckIn and Activity
// records in the same transaction as the state flip. This layer adds the
// authorization rules on top — only members may check out, only the owner
// may modify or delete.
type ProjectService struct {
	projects    repository.ProjectRepository
	users       repository.UserRepository
	checkins    repository.CheckInRepository
	activities  repository.ActivityRepository
	discussions repository.DiscussionRepository
	logger      *slog.Logger
}

func NewProjectService(
	projects repository.ProjectRepository,
	users repository.UserRepository,
	checkins repository.CheckInRepository,
	activities repository.ActivityRepository,
	discussions repository.DiscussionRepository,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects:    projects,
		users:       users,
		checkins:    checkins,
		activities:  activities,
		discussions: discussions,
		logger:      logger,
	}
}

// Create validates and saves a new project. The owner becomes its first
// member, the project starts checked in, and a "created project" entry is
// appended to the feed.
func (s *ProjectService) Create(ctx context.Context, ownerID, name, description, projectType string,
	languages []string, files []model.ProjectFile) (*model.Project, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "project name is required")
	}
	if len(name) > MaxProjectNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("project name must be %d characters or less", MaxProjectNameLength))
	}
	if err := validateFiles(files); err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	project := &model.Project{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		Languages:   languages,
		Type:        strings.TrimSpace(projectType),
		Files:       files,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	activity := &model.Activity{
		UserID:      ownerID,
		Username:    owner.Username,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Action:      model.ActionCreatedProject,
	}
	if err := s.activities.Append(ctx, activity); err != nil {
		// The project exists; a missing feed entry is not worth failing
		// the creation over.
		s.logger.Error("appending created-project activity",
			slog.String("projectID", project.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("project created",
		slog.String("projectID", project.ID),
		slog.String("ownerID", ownerID),
	)
	return project, nil
}

// GetByID retrieves a project with its member list.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*model.Project, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "project ID is required")
	}
	return s.projects.GetByID(ctx, id)
}

// Featured lists every project, newest first.
func (s *ProjectService) Featured(ctx context.Context) ([]model.Project, error) {
	return s.projects.ListAll(ctx)
}

// Search finds projects by name, description, type or language substring.
func (s *ProjectService) Search(ctx context.Context, query string) ([]model.Project, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}
	return s.projects.Search(ctx, query)
}

// Update modifies project metadata. Owner only; files and the lock state are
// untouched here — files only change through check-in.
func (s *ProjectService) Update(ctx context.Context, actorID, id, name, description, projectType string,
	languages []string) (*model.Project, error) {

	project, err := s.requireOwner(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if len(name) > MaxProjectNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("project name must be %d characters or less", MaxProjectNameLength))
		}
		project.Name = name
	}
	project.Description = strings.TrimSpace(description)
	project.Type = strings.TrimSpace(projectType)
	if languages != nil {
		project.Languages = languages
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("updating project %s: %w", id, err)
	}

	s.logger.Info("project updated", slog.String("projectID", id))
	return project, nil
}

// Delete removes a project and its discussion board. Owner only. Check-in
// history and feed entries survive the project.
func (s *ProjectService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.requireOwner(ctx, actorID, id); err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.discussions.DeleteByProject(ctx, id); err != nil {
		s.logger.Error("deleting discussions for project",
			slog.String("projectID", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("project deleted", slog.String("projectID", id))
	return nil
}

// Checkout acquires the exclusive lock for the actor. Only members may check
// out. If another user holds the lock the result is a conflict; the previous
// holder is never displaced.
func (s *ProjectService) Checkout(ctx context.Context, actorID, projectID string) (*model.Project, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsMember(actorID) {
		return nil, apperror.Forbidden("only project members can check out")
	}

	updated, err := s.projects.Checkout(ctx, projectID, actorID, actor.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project checked out",
		slog.String("projectID", projectID),
		slog.String("userID", actorID),
	)
	return updated, nil
}

// CheckIn releases the lock, replacing the project files and bumping the
// version. Only the current holder can check in; anyone else gets a conflict
// and the project state stays untouched. An empty version keeps the current
// one.
func (s *ProjectService) CheckIn(ctx context.Context, actorID, projectID string,
	files []model.ProjectFile, message, version string) (*model.Project, error) {

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "a check-in message is required")
	}
	if len(message) > MaxMessageLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("message must be %d characters or less", MaxMessageLength))
	}
	if err := validateFiles(files); err != nil {
		return nil, err
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if version = strings.TrimSpace(version); version == "" {
		project, err := s.projects.GetByID(ctx, projectID)
		if err != nil {
			return nil, err
		}
		version = project.Version
	}

	updated, err := s.projects.Checkin(ctx, projectID, actorID, actor.Username, files, message, version)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project checked in",
		slog.String("projectID", projectID),
		slog.String("userID", actorID),
		slog.String("version", version),
	)
	return updated, nil
}

// CheckInHistory lists the project's check-ins, newest first.
func (s *ProjectService) CheckInHistory(ctx context.Context, projectID string) ([]model.CheckIn, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.checkins.ListByProject(ctx, projectID)
}

// Activity lists the project's feed entries, newest first.
func (s *ProjectService) Activity(ctx context.Context, projectID string) ([]model.Activity, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.activities.ListByProject(ctx, projectID)
}

// AddMember grants a user membership. Owner only; the user must exist.
// Adding an existing member is a no-op.
func (s *ProjectService) AddMember(ctx context.Context, actorID, projectID, userID string) error {
	if _, err := s.requireOwner(ctx, actorID, projectID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.projects.AddMember(ctx, projectID, userID); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}

	s.logger.Info("member added",
		slog.String("projectID", projectID),
		slog.String("userID", userID),
	)
	return nil
}

// RemoveMember revokes membership. Owner only; the owner cannot be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, actorID, projectID, userID string) error {
	project, err := s.requireOwner(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if userID == project.OwnerID {
		return apperror.ValidationFailed("userId", "the owner cannot be removed from the project")
	}
	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}

	s.logger.Info("member removed",
		slog.String("projectID", projectID),
		slog.String("userID", userID),
	)
	return nil
}

func (s *ProjectService) requireOwner(ctx context.Context, actorID, projectID string) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actorID {
		return nil, apperror.Forbidden("only the project owner can do this")
	}
	return project, nil
}

func validateFiles(files []model.ProjectFile) error {
	if len(files) > MaxFileCount {
		return apperror.ValidationFailed("files",
			fmt.Sprintf("a project can hold at most %d files", MaxFileCount))
	}
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return apperror.ValidationFailed("files", "every file needs a name")
		}
		if len(f.Content) > MaxFileSize {
			return apperror.ValidationFailed("files",
				fmt.Sprintf("file %q exceeds the %d byte limit", f.Name, MaxFileSize))
		}
	}
	return nil
}
