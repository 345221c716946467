// Package repository defines the storage interfaces the service layer
// depends on. The sqlite subpackage provides the real implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/reardon/codeverse/internal/model"
)

// FeedLimit caps the number of entries returned by the activity feeds.
const FeedLimit = 50

// UserRepository persists users and their relationship sets.
//
// The set-mutating methods are primitives: they assume the caller (the
// service layer) has already checked business preconditions such as
// "not already friends". AcceptFriendRequest and Unfriend perform their
// symmetric double-writes inside a single transaction so a crash can never
// leave a one-directional friendship behind.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]model.User, error)

	AddFriendRequest(ctx context.Context, userID, requesterID string) error
	// AcceptFriendRequest removes the pending request and inserts both
	// friendship directions. Returns false if no such request was pending.
	AcceptFriendRequest(ctx context.Context, userID, requesterID string) (bool, error)
	// DeclineFriendRequest removes the pending request only. Returns false
	// if no such request was pending.
	DeclineFriendRequest(ctx context.Context, userID, requesterID string) (bool, error)
	Unfriend(ctx context.Context, userID, friendID string) error

	SaveProject(ctx context.Context, userID, projectID string) error
	UnsaveProject(ctx context.Context, userID, projectID string) error
}

// ProjectRepository persists projects and drives the checkout/check-in lock.
//
// Checkout and Checkin are expressed as single atomic conditional updates —
// the row is modified only if the lock precondition still holds at write
// time. That conditional write is the sole concurrency guarantee; there is
// no application-level locking. Both also append their side-effect records
// (Activity, and CheckIn for check-ins) in the same transaction as the
// state change.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	ListAll(ctx context.Context) ([]model.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]model.Project, error)

	AddMember(ctx context.Context, projectID, userID string) error
	RemoveMember(ctx context.Context, projectID, userID string) error

	Checkout(ctx context.Context, projectID, userID, username string) (*model.Project, error)
	Checkin(ctx context.Context, projectID, userID, username string,
		files []model.ProjectFile, message, version string) (*model.Project, error)
}

// CheckInRepository reads the immutable check-in history.
// Records are created only by ProjectRepository.Checkin.
type CheckInRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]model.CheckIn, error)
}

// ActivityRepository is the append-only feed store.
type ActivityRepository interface {
	Append(ctx context.Context, activity *model.Activity) error
	GlobalFeed(ctx context.Context) ([]model.Activity, error)
	// LocalFeed returns entries whose actor is in userIDs, newest first,
	// capped at FeedLimit.
	LocalFeed(ctx context.Context, userIDs []string) ([]model.Activity, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Activity, error)
	// Search matches the message field, case-insensitive substring,
	// newest first, unbounded.
	Search(ctx context.Context, query string) ([]model.Activity, error)
}

// DiscussionRepository persists per-project comments.
type DiscussionRepository interface {
	Create(ctx context.Context, discussion *model.Discussion) error
	ListByProject(ctx context.Context, projectID string) ([]model.Discussion, error)
	DeleteByProject(ctx context.Context, projectID string) error
}
