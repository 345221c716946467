package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

const (
	MaxNameLength = 100
	MaxBioLength  = 500
)

// UserService owns profile management and the friend relationship graph.
//
// Friendship is symmetric: when A and B are friends, each appears in the
// other's Friends set. The repository applies both directions in one
// transaction; this layer enforces the request protocol — a friendship only
// ever forms by accepting a pending request.
type UserService struct {
	users    repository.UserRepository
	projects repository.ProjectRepository
	logger   *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		projects: projects,
		logger:   logger,
	}
}

// GetByUsername returns the public profile for a handle.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.users.GetByUsername(ctx, username)
}

// GetByID returns the user record for an internal ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// UpdateProfile changes the display fields of the actor's own account.
// Updating someone else's profile is forbidden.
func (s *UserService) UpdateProfile(ctx context.Context, actorID, targetID, name, bio, avatar string) (*model.User, error) {
	if actorID != targetID {
		return nil, apperror.Forbidden("you can only update your own profile")
	}

	name = strings.TrimSpace(name)
	bio = strings.TrimSpace(bio)
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if len(bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Bio = bio
	user.Avatar = strings.TrimSpace(avatar)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user %s: %w", targetID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", targetID))
	return user, nil
}

// DeleteAccount removes the actor's own account together with every
// relationship edge that references it. Projects and history stay.
func (s *UserService) DeleteAccount(ctx context.Context, actorID, targetID string) error {
	if actorID != targetID {
		return apperror.Forbidden("you can only delete your own account")
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.String("userID", targetID))
	return nil
}

// Search finds users by username, email or display name substring.
func (s *UserService) Search(ctx context.Context, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}
	return s.users.Search(ctx, query)
}

// SendFriendRequest records a pending request from the actor to the target.
// Requesting yourself is a validation error; an existing friendship or a
// duplicate pending request is a conflict.
func (s *UserService) SendFriendRequest(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return apperror.ValidationFailed("userId", "you cannot send a friend request to yourself")
	}

	target, err := s.users.GetByID(ctx, toID)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, fromID); err != nil {
		return err
	}

	for _, f := range target.Friends {
		if f == fromID {
			return apperror.Conflict("you are already friends")
		}
	}
	for _, r := range target.FriendRequests {
		if r == fromID {
			return apperror.Conflict("friend request already sent")
		}
	}

	if err := s.users.AddFriendRequest(ctx, toID, fromID); err != nil {
		return fmt.Errorf("adding friend request: %w", err)
	}

	s.logger.Info("friend request sent",
		slog.String("from", fromID),
		slog.String("to", toID),
	)
	return nil
}

// AcceptFriendRequest turns a pending request into a mutual friendship.
// Accepting when no request is pending is a conflict, so a request can be
// consumed at most once even under concurrent accepts.
func (s *UserService) AcceptFriendRequest(ctx context.Context, userID, requesterID string) error {
	if _, err := s.users.GetByID(ctx, requesterID); err != nil {
		return err
	}

	ok, err := s.users.AcceptFriendRequest(ctx, userID, requesterID)
	if err != nil {
		return fmt.Errorf("accepting friend request: %w", err)
	}
	if !ok {
		return apperror.Conflict("no pending friend request from this user")
	}

	s.logger.Info("friend request accepted",
		slog.String("userID", userID),
		slog.String("requesterID", requesterID),
	)
	return nil
}

// DeclineFriendRequest discards a pending request without creating any
// friendship. Declining a request that is not pending is a conflict.
func (s *UserService) DeclineFriendRequest(ctx context.Context, userID, requesterID string) error {
	ok, err := s.users.DeclineFriendRequest(ctx, userID, requesterID)
	if err != nil {
		return fmt.Errorf("declining friend request: %w", err)
	}
	if !ok {
		return apperror.Conflict("no pending friend request from this user")
	}

	s.logger.Info("friend request declined",
		slog.String("userID", userID),
		slog.String("requesterID", requesterID),
	)
	return nil
}

// Unfriend removes the friendship in both directions. The friend must be a
// real user; removing an edge that does not exist is a no-op.
func (s *UserService) Unfriend(ctx context.Context, userID, friendID string) error {
	if _, err := s.users.GetByID(ctx, friendID); err != nil {
		return err
	}
	if err := s.users.Unfriend(ctx, userID, friendID); err != nil {
		return fmt.Errorf("removing friendship: %w", err)
	}

	s.logger.Info("friendship removed",
		slog.String("userID", userID),
		slog.String("friendID", friendID),
	)
	return nil
}

// Friends returns the hydrated user records for a user's friends. Friends
// whose accounts disappeared mid-iteration are skipped rather than failing
// the whole listing.
func (s *UserService) Friends(ctx context.Context, userID string) ([]model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	friends := []model.User{}
	for _, id := range user.Friends {
		friend, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("fetching friend %s: %w", id, err)
		}
		friends = append(friends, *friend)
	}
	return friends, nil
}

// SaveProject bookmarks a project for the actor. The project must exist.
func (s *UserService) SaveProject(ctx context.Context, userID, projectID string) error {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return err
	}
	if err := s.users.SaveProject(ctx, userID, projectID); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// UnsaveProject removes a bookmark. Idempotent.
func (s *UserService) UnsaveProject(ctx context.Context, userID, projectID string) error {
	if err := s.users.UnsaveProject(ctx, userID, projectID); err != nil {
		return fmt.Errorf("unsaving project: %w", err)
	}
	return nil
}

// SavedProjects returns the full project records the user has bookmarked.
func (s *UserService) SavedProjects(ctx context.Context, userID string) ([]model.Project, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.projects.ListByIDs(ctx, user.SavedProjects)
}
