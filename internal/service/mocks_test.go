package service

// In-memory mock repositories shared by the service tests. They implement
// the repository interfaces with the same error semantics as the sqlite
// stores so the services under test cannot tell the difference.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- users ---

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperror.Conflict("username or email already registered")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.Friends = []string{}
	user.FriendRequests = []string{}
	user.SavedProjects = []string{}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range m.users {
		if u.GitHubID == githubID {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	stored, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored.Name = user.Name
	stored.Bio = user.Bio
	stored.Avatar = user.Avatar
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	for _, u := range m.users {
		u.Friends = remove(u.Friends, id)
		u.FriendRequests = remove(u.FriendRequests, id)
	}
	return nil
}

func (m *mockUserRepo) Search(_ context.Context, query string) ([]model.User, error) {
	q := strings.ToLower(query)
	results := []model.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.Name), q) {
			results = append(results, *u)
		}
	}
	return results, nil
}

func (m *mockUserRepo) AddFriendRequest(_ context.Context, userID, requesterID string) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if !contains(u.FriendRequests, requesterID) {
		u.FriendRequests = append(u.FriendRequests, requesterID)
	}
	return nil
}

func (m *mockUserRepo) AcceptFriendRequest(_ context.Context, userID, requesterID string) (bool, error) {
	u, ok := m.users[userID]
	if !ok {
		return false, apperror.NotFound("user", userID)
	}
	if !contains(u.FriendRequests, requesterID) {
		return false, nil
	}
	u.FriendRequests = remove(u.FriendRequests, requesterID)
	u.Friends = append(u.Friends, requesterID)
	if r, ok := m.users[requesterID]; ok {
		r.Friends = append(r.Friends, userID)
	}
	return true, nil
}

func (m *mockUserRepo) DeclineFriendRequest(_ context.Context, userID, requesterID string) (bool, error) {
	u, ok := m.users[userID]
	if !ok {
		return false, apperror.NotFound("user", userID)
	}
	if !contains(u.FriendRequests, requesterID) {
		return false, nil
	}
	u.FriendRequests = remove(u.FriendRequests, requesterID)
	return true, nil
}

func (m *mockUserRepo) Unfriend(_ context.Context, userID, friendID string) error {
	if u, ok := m.users[userID]; ok {
		u.Friends = remove(u.Friends, friendID)
	}
	if f, ok := m.users[friendID]; ok {
		f.Friends = remove(f.Friends, userID)
	}
	return nil
}

func (m *mockUserRepo) SaveProject(_ context.Context, userID, projectID string) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if !contains(u.SavedProjects, projectID) {
		u.SavedProjects = append(u.SavedProjects, projectID)
	}
	return nil
}

func (m *mockUserRepo) UnsaveProject(_ context.Context, userID, projectID string) error {
	if u, ok := m.users[userID]; ok {
		u.SavedProjects = remove(u.SavedProjects, projectID)
	}
	return nil
}

// --- projects ---

type mockProjectRepo struct {
	projects map[string]*model.Project
	nextID   int
}

var _ repository.ProjectRepository = (*mockProjectRepo)(nil)

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*model.Project)}
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	m.nextID++
	project.ID = fmt.Sprintf("project-%d", m.nextID)
	project.Status = model.StatusCheckedIn
	if project.Version == "" {
		project.Version = "1.0.0"
	}
	project.Members = []string{project.OwnerID}
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	result := *p
	return &result, nil
}

func (m *mockProjectRepo) ListAll(_ context.Context) ([]model.Project, error) {
	results := []model.Project{}
	for _, p := range m.projects {
		results = append(results, *p)
	}
	return results, nil
}

func (m *mockProjectRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Project, error) {
	results := []model.Project{}
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			results = append(results, *p)
		}
	}
	return results, nil
}

func (m *mockProjectRepo) ListByIDs(_ context.Context, ids []string) ([]model.Project, error) {
	results := []model.Project{}
	for _, id := range ids {
		if p, ok := m.projects[id]; ok {
			results = append(results, *p)
		}
	}
	return results, nil
}

func (m *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	stored, ok := m.projects[project.ID]
	if !ok {
		return apperror.NotFound("project", project.ID)
	}
	stored.Name = project.Name
	stored.Description = project.Description
	stored.Languages = project.Languages
	stored.Type = project.Type
	return nil
}

func (m *mockProjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return apperror.NotFound("project", id)
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) Search(_ context.Context, query string) ([]model.Project, error) {
	q := strings.ToLower(query)
	results := []model.Project{}
	for _, p := range m.projects {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			results = append(results, *p)
		}
	}
	return results, nil
}

func (m *mockProjectRepo) AddMember(_ context.Context, projectID, userID string) error {
	p, ok := m.projects[projectID]
	if !ok {
		return apperror.NotFound("project", projectID)
	}
	if !contains(p.Members, userID) {
		p.Members = append(p.Members, userID)
	}
	return nil
}

func (m *mockProjectRepo) RemoveMember(_ context.Context, projectID, userID string) error {
	p, ok := m.projects[projectID]
	if !ok {
		return apperror.NotFound("project", projectID)
	}
	p.Members = remove(p.Members, userID)
	return nil
}

func (m *mockProjectRepo) Checkout(_ context.Context, projectID, userID, _ string) (*model.Project, error) {
	p, ok := m.projects[projectID]
	if !ok {
		return nil, apperror.NotFound("project", projectID)
	}
	if p.Status != model.StatusCheckedIn {
		return nil, apperror.Conflict("project is already checked out")
	}
	p.Status = model.StatusCheckedOut
	p.CheckedOutBy = userID
	result := *p
	return &result, nil
}

func (m *mockProjectRepo) Checkin(_ context.Context, projectID, userID, _ string,
	files []model.ProjectFile, _, version string) (*model.Project, error) {

	p, ok := m.projects[projectID]
	if !ok {
		return nil, apperror.NotFound("project", projectID)
	}
	if p.Status != model.StatusCheckedOut || p.CheckedOutBy != userID {
		return nil, apperror.Conflict("project is not checked out by you")
	}
	p.Files = files
	p.Version = version
	p.Status = model.StatusCheckedIn
	p.CheckedOutBy = ""
	result := *p
	return &result, nil
}

// --- checkins, activities, discussions ---

type mockCheckInRepo struct {
	checkins []model.CheckIn
}

var _ repository.CheckInRepository = (*mockCheckInRepo)(nil)

func (m *mockCheckInRepo) ListByProject(_ context.Context, projectID string) ([]model.CheckIn, error) {
	results := []model.CheckIn{}
	for _, c := range m.checkins {
		if c.ProjectID == projectID {
			results = append(results, c)
		}
	}
	return results, nil
}

type mockActivityRepo struct {
	activities []model.Activity
	nextID     int
}

var _ repository.ActivityRepository = (*mockActivityRepo)(nil)

func (m *mockActivityRepo) Append(_ context.Context, activity *model.Activity) error {
	m.nextID++
	activity.ID = fmt.Sprintf("activity-%d", m.nextID)
	m.activities = append(m.activities, *activity)
	return nil
}

// newestFirst returns entries in reverse append order, mirroring the
// created_at DESC ordering of the sqlite store.
func (m *mockActivityRepo) newestFirst() []model.Activity {
	results := make([]model.Activity, 0, len(m.activities))
	for i := len(m.activities) - 1; i >= 0; i-- {
		results = append(results, m.activities[i])
	}
	return results
}

func (m *mockActivityRepo) GlobalFeed(_ context.Context) ([]model.Activity, error) {
	results := m.newestFirst()
	if len(results) > repository.FeedLimit {
		results = results[:repository.FeedLimit]
	}
	return results, nil
}

func (m *mockActivityRepo) LocalFeed(_ context.Context, userIDs []string) ([]model.Activity, error) {
	results := []model.Activity{}
	for _, a := range m.newestFirst() {
		if contains(userIDs, a.UserID) {
			results = append(results, a)
			if len(results) == repository.FeedLimit {
				break
			}
		}
	}
	return results, nil
}

func (m *mockActivityRepo) ListByProject(_ context.Context, projectID string) ([]model.Activity, error) {
	results := []model.Activity{}
	for _, a := range m.newestFirst() {
		if a.ProjectID == projectID {
			results = append(results, a)
		}
	}
	return results, nil
}

func (m *mockActivityRepo) Search(_ context.Context, query string) ([]model.Activity, error) {
	q := strings.ToLower(query)
	results := []model.Activity{}
	for _, a := range m.newestFirst() {
		if strings.Contains(strings.ToLower(a.Message), q) {
			results = append(results, a)
		}
	}
	return results, nil
}

type mockDiscussionRepo struct {
	discussions []model.Discussion
	nextID      int
}

var _ repository.DiscussionRepository = (*mockDiscussionRepo)(nil)

func (m *mockDiscussionRepo) Create(_ context.Context, discussion *model.Discussion) error {
	m.nextID++
	discussion.ID = fmt.Sprintf("discussion-%d", m.nextID)
	m.discussions = append(m.discussions, *discussion)
	return nil
}

func (m *mockDiscussionRepo) ListByProject(_ context.Context, projectID string) ([]model.Discussion, error) {
	results := []model.Discussion{}
	for i := len(m.discussions) - 1; i >= 0; i-- {
		if m.discussions[i].ProjectID == projectID {
			results = append(results, m.discussions[i])
		}
	}
	return results, nil
}

func (m *mockDiscussionRepo) DeleteByProject(_ context.Context, projectID string) error {
	kept := m.discussions[:0]
	for _, d := range m.discussions {
		if d.ProjectID != projectID {
			kept = append(kept, d)
		}
	}
	m.discussions = kept
	return nil
}

// --- helpers ---

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}

// newMockProject creates a project directly in the mock repo.
func newMockProject(repo *mockProjectRepo, ownerID, name string) (*model.Project, error) {
	project := &model.Project{Name: name, OwnerID: ownerID}
	if err := repo.Create(context.Background(), project); err != nil {
		return nil, err
	}
	return project, nil
}

// seedUser creates a user directly in the mock repo.
func seedUser(t *testing.T, repo *mockUserRepo, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return user
}
