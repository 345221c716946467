package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

// ActivityService serves the read side of the feed. Entries are appended by
// the project store as side effects of create/checkout/check-in; nothing
// appends through this service.
type ActivityService struct {
	activities repository.ActivityRepository
	users      repository.UserRepository
	logger     *slog.Logger
}

func NewActivityService(
	activities repository.ActivityRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		users:      users,
		logger:     logger,
	}
}

// GlobalFeed returns the newest entries across all users, capped at
// repository.FeedLimit.
func (s *ActivityService) GlobalFeed(ctx context.Context) ([]model.Activity, error) {
	return s.activities.GlobalFeed(ctx)
}

// LocalFeed returns the newest entries whose actor is the user or one of
// their friends, capped at repository.FeedLimit.
func (s *ActivityService) LocalFeed(ctx context.Context, userID string) ([]model.Activity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	actors := append([]string{user.ID}, user.Friends...)
	return s.activities.LocalFeed(ctx, actors)
}

// Search matches feed messages by case-insensitive substring, newest first.
func (s *ActivityService) Search(ctx context.Context, query string) ([]model.Activity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}
	return s.activities.Search(ctx, query)
}
