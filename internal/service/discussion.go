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

// DiscussionService handles per-project comment boards.
type DiscussionService struct {
	discussions repository.DiscussionRepository
	projects    repository.ProjectRepository
	users       repository.UserRepository
	logger      *slog.Logger
}

func NewDiscussionService(
	discussions repository.DiscussionRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *DiscussionService {
	return &DiscussionService{
		discussions: discussions,
		projects:    projects,
		users:       users,
		logger:      logger,
	}
}

// Post adds a comment to a project's board. The message is required; the
// poster's username is snapshotted onto the comment.
func (s *DiscussionService) Post(ctx context.Context, actorID, projectID, message string) (*model.Discussion, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "a message is required")
	}
	if len(message) > MaxMessageLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("message must be %d characters or less", MaxMessageLength))
	}

	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	discussion := &model.Discussion{
		ProjectID: projectID,
		UserID:    actorID,
		Username:  actor.Username,
		Message:   message,
	}
	if err := s.discussions.Create(ctx, discussion); err != nil {
		return nil, fmt.Errorf("creating discussion: %w", err)
	}

	s.logger.Info("discussion posted",
		slog.String("projectID", projectID),
		slog.String("userID", actorID),
	)
	return discussion, nil
}

// List returns a project's comments, newest first.
func (s *DiscussionService) List(ctx context.Context, projectID string) ([]model.Discussion, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.discussions.ListByProject(ctx, projectID)
}
