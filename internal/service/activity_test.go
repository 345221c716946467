package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

func newTestActivityService(t *testing.T) (*ActivityService, *mockUserRepo, *mockActivityRepo) {
	t.Helper()
	users := newMockUserRepo()
	activities := &mockActivityRepo{}
	svc := NewActivityService(activities, users, testLogger())
	return svc, users, activities
}

func appendActivity(t *testing.T, repo *mockActivityRepo, userID, message string) {
	t.Helper()
	err := repo.Append(context.Background(), &model.Activity{
		UserID:  userID,
		Action:  model.ActionCheckedIn,
		Message: message,
	})
	if err != nil {
		t.Fatalf("appending activity: %v", err)
	}
}

func TestGlobalFeed_NewestFirstAndCapped(t *testing.T) {
	svc, _, activities := newTestActivityService(t)

	for i := 0; i < repository.FeedLimit+10; i++ {
		appendActivity(t, activities, "user-1", fmt.Sprintf("entry %d", i))
	}

	feed, err := svc.GlobalFeed(context.Background())
	if err != nil {
		t.Fatalf("GlobalFeed() error = %v", err)
	}
	if len(feed) != repository.FeedLimit {
		t.Errorf("feed length = %d, want %d", len(feed), repository.FeedLimit)
	}
	if feed[0].Message != fmt.Sprintf("entry %d", repository.FeedLimit+9) {
		t.Errorf("feed[0].Message = %q, want the newest entry", feed[0].Message)
	}
}

func TestLocalFeed_OnlySelfAndFriends(t *testing.T) {
	svc, users, activities := newTestActivityService(t)
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	carol := seedUser(t, users, "carol")

	// alice and bob are friends; carol is a stranger.
	users.AddFriendRequest(context.Background(), alice.ID, bob.ID)
	users.AcceptFriendRequest(context.Background(), alice.ID, bob.ID)

	appendActivity(t, activities, alice.ID, "from alice")
	appendActivity(t, activities, bob.ID, "from bob")
	appendActivity(t, activities, carol.ID, "from carol")

	feed, err := svc.LocalFeed(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("LocalFeed() error = %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed length = %d, want 2 (self + friend)", len(feed))
	}
	for _, entry := range feed {
		if entry.UserID == carol.ID {
			t.Errorf("local feed contains a stranger's entry: %v", entry)
		}
	}
}

func TestLocalFeed_UnknownUser(t *testing.T) {
	svc, _, _ := newTestActivityService(t)

	_, err := svc.LocalFeed(context.Background(), "user-missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestActivitySearch_MatchesMessageSubstring(t *testing.T) {
	svc, _, activities := newTestActivityService(t)

	appendActivity(t, activities, "user-1", "fixed the login bug")
	appendActivity(t, activities, "user-1", "added dark mode")

	results, err := svc.Search(context.Background(), "login")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Message != "fixed the login bug" {
		t.Errorf("Search() = %v, want the login entry only", results)
	}

	if _, err := svc.Search(context.Background(), "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank query error = %v, want ErrValidation", err)
	}
}
