package service

import (
	"context"
	"errors"
	"testing"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
)

type projectFixture struct {
	svc         *ProjectService
	users       *mockUserRepo
	projects    *mockProjectRepo
	checkins    *mockCheckInRepo
	activities  *mockActivityRepo
	discussions *mockDiscussionRepo
}

func newTestProjectService(t *testing.T) *projectFixture {
	t.Helper()
	f := &projectFixture{
		users:       newMockUserRepo(),
		projects:    newMockProjectRepo(),
		checkins:    &mockCheckInRepo{},
		activities:  &mockActivityRepo{},
		discussions: &mockDiscussionRepo{},
	}
	f.svc = NewProjectService(f.projects, f.users, f.checkins, f.activities, f.discussions, testLogger())
	return f
}

func TestProjectCreate_Success(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "my project", "a demo", "web",
		[]string{"go"}, []model.ProjectFile{{Name: "main.go", Content: "package main"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if project.Status != model.StatusCheckedIn {
		t.Errorf("Status = %q, want %q", project.Status, model.StatusCheckedIn)
	}
	if !project.IsMember(alice.ID) {
		t.Error("owner should be a member of the new project")
	}
	if len(f.activities.activities) != 1 || f.activities.activities[0].Action != model.ActionCreatedProject {
		t.Errorf("activities = %v, want one %q entry", f.activities.activities, model.ActionCreatedProject)
	}
}

func TestProjectCreate_EmptyName(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	_, err := f.svc.Create(context.Background(), alice.ID, "   ", "", "", nil, nil)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestProjectUpdate_OwnerOnly(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.svc.Update(context.Background(), bob.ID, project.ID, "renamed", "", "", nil)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}

	updated, err := f.svc.Update(context.Background(), alice.ID, project.ID, "renamed", "new desc", "", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "renamed" {
		t.Errorf("Name = %q, want %q", updated.Name, "renamed")
	}
}

func TestProjectDelete_RemovesDiscussions(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.discussions.Create(context.Background(), &model.Discussion{ProjectID: project.ID, Message: "hi"})

	if err := f.svc.Delete(context.Background(), alice.ID, project.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(f.discussions.discussions) != 0 {
		t.Errorf("discussions after delete = %v, want empty", f.discussions.discussions)
	}
	if _, err := f.projects.GetByID(context.Background(), project.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted project lookup error = %v, want ErrNotFound", err)
	}
}

func TestCheckout_Success(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := f.svc.Checkout(context.Background(), alice.ID, project.ID)
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if got.Status != model.StatusCheckedOut || got.CheckedOutBy != alice.ID {
		t.Errorf("after checkout: status=%q holder=%q, want checked-out by %s",
			got.Status, got.CheckedOutBy, alice.ID)
	}
}

func TestCheckout_NonMemberForbidden(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.svc.Checkout(context.Background(), bob.ID, project.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestCheckout_AlreadyCheckedOut(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.svc.AddMember(context.Background(), alice.ID, project.ID, bob.ID); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	if _, err := f.svc.Checkout(context.Background(), alice.ID, project.ID); err != nil {
		t.Fatalf("first Checkout() error = %v", err)
	}

	_, err = f.svc.Checkout(context.Background(), bob.ID, project.ID)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	// The original holder keeps the lock.
	got, _ := f.projects.GetByID(context.Background(), project.ID)
	if got.CheckedOutBy != alice.ID {
		t.Errorf("holder = %q, want %q", got.CheckedOutBy, alice.ID)
	}
}

func TestCheckout_UnknownProject(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	_, err := f.svc.Checkout(context.Background(), alice.ID, "project-missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCheckIn_Success(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Checkout(context.Background(), alice.ID, project.ID); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	files := []model.ProjectFile{{Name: "main.go", Content: "package main"}}
	got, err := f.svc.CheckIn(context.Background(), alice.ID, project.ID, files, "initial code", "1.1.0")
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}

	if got.Status != model.StatusCheckedIn || got.CheckedOutBy != "" {
		t.Errorf("after check-in: status=%q holder=%q, want checked-in and no holder",
			got.Status, got.CheckedOutBy)
	}
	if got.Version != "1.1.0" {
		t.Errorf("Version = %q, want %q", got.Version, "1.1.0")
	}
	if len(got.Files) != 1 || got.Files[0].Name != "main.go" {
		t.Errorf("Files = %v, want the submitted files", got.Files)
	}
}

func TestCheckIn_NotHolder(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.svc.AddMember(context.Background(), alice.ID, project.ID, bob.ID); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if _, err := f.svc.Checkout(context.Background(), alice.ID, project.ID); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	_, err = f.svc.CheckIn(context.Background(), bob.ID, project.ID, nil, "stealing the lock", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	// Nothing changed.
	got, _ := f.projects.GetByID(context.Background(), project.ID)
	if got.Status != model.StatusCheckedOut || got.CheckedOutBy != alice.ID {
		t.Errorf("state after failed check-in: status=%q holder=%q, want unchanged",
			got.Status, got.CheckedOutBy)
	}
}

func TestCheckIn_RequiresMessage(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.svc.CheckIn(context.Background(), alice.ID, project.ID, nil, "   ", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCheckIn_EmptyVersionKeepsCurrent(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Checkout(context.Background(), alice.ID, project.ID); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	got, err := f.svc.CheckIn(context.Background(), alice.ID, project.ID, nil, "no version bump", "")
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if got.Version != "1.0.0" {
		t.Errorf("Version = %q, want unchanged %q", got.Version, "1.0.0")
	}
}

func TestAddMember_OwnerOnly(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	carol := seedUser(t, f.users, "carol")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.svc.AddMember(context.Background(), bob.ID, project.ID, carol.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if err := f.svc.AddMember(context.Background(), alice.ID, project.ID, carol.ID); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	got, _ := f.projects.GetByID(context.Background(), project.ID)
	if !got.IsMember(carol.ID) {
		t.Errorf("Members = %v, missing %s", got.Members, carol.ID)
	}
}

func TestRemoveMember_CannotRemoveOwner(t *testing.T) {
	f := newTestProjectService(t)
	alice := seedUser(t, f.users, "alice")

	project, err := f.svc.Create(context.Background(), alice.ID, "demo", "", "", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = f.svc.RemoveMember(context.Background(), alice.ID, project.ID, alice.ID)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
