package sqlite

// Shared helpers for the store tests. Each test opens a fresh in-memory
// database, so tests stay isolated and fast.

import (
	"context"
	"testing"

	"github.com/reardon/codeverse/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
	}
	if err := NewUserStore(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %s: %v", username, err)
	}
	return user
}

func createTestProject(t *testing.T, db *DB, ownerID, name string) *model.Project {
	t.Helper()
	project := &model.Project{
		Name:    name,
		OwnerID: ownerID,
		Files:   []model.ProjectFile{{Name: "main.go", Content: "package main"}},
	}
	if err := NewProjectStore(db).Create(context.Background(), project); err != nil {
		t.Fatalf("failed to create test project %s: %v", name, err)
	}
	return project
}
