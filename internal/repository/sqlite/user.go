package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository on the shared DB handle.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, email, password_hash, github_id, name, bio, avatar, created_at, updated_at`

// Create inserts a new user. The caller's struct gets the generated ID and
// timestamps. A duplicate username or email surfaces as a conflict error —
// the service pre-checks both, but the UNIQUE constraints are the authority
// under concurrent registration.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	var githubID any
	if user.GitHubID != 0 {
		githubID = user.GitHubID
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		githubID,
		user.Name,
		user.Bio,
		user.Avatar,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("username or email already registered")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	user.Friends = []string{}
	user.FriendRequests = []string{}
	user.SavedProjects = []string{}
	return nil
}

// GetByID retrieves a user with relationship sets hydrated.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id, id)
}

// GetByUsername retrieves a user by their unique handle.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `WHERE username = ?`, username, username)
}

// GetByEmail retrieves a user by their unique email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email, email)
}

// GetByGitHubID retrieves a user by their linked GitHub account.
func (s *UserStore) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.getUser(ctx, `WHERE github_id = ?`, githubID, fmt.Sprintf("github:%d", githubID))
}

// getUser runs a single-row user lookup and hydrates the relationship sets.
// notFoundID is only used in the error message.
func (s *UserStore) getUser(ctx context.Context, where string, arg any, notFoundID string) (*model.User, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", notFoundID)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", notFoundID, err)
	}

	if err := s.loadUserSets(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var githubID sql.NullInt64
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&githubID,
		&u.Name,
		&u.Bio,
		&u.Avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

// loadUserSets fills Friends, FriendRequests and SavedProjects from their
// join tables. The sets are always non-nil after loading so they serialize
// as [] rather than null.
func (s *UserStore) loadUserSets(ctx context.Context, user *model.User) error {
	var err error
	user.Friends, err = s.db.stringColumn(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = ? ORDER BY created_at`, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading friends for user %s: %w", user.ID, err)
	}
	user.FriendRequests, err = s.db.stringColumn(ctx,
		`SELECT requester_id FROM friend_requests WHERE user_id = ? ORDER BY created_at`, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading friend requests for user %s: %w", user.ID, err)
	}
	user.SavedProjects, err = s.db.stringColumn(ctx,
		`SELECT project_id FROM saved_projects WHERE user_id = ? ORDER BY created_at`, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading saved projects for user %s: %w", user.ID, err)
	}
	return nil
}

// Update persists profile fields (name, bio, avatar) and refreshes
// updated_at. Identity fields (username, email, password) are not touched
// here.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, bio = ?, avatar = ?, updated_at = ? WHERE id = ?`,
		user.Name,
		user.Bio,
		user.Avatar,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Delete removes the user and every relationship row that references them,
// in one transaction. Projects, check-ins and activities created by the
// user are left in place — history outlives the account.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete user tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM friendships WHERE user_id = ? OR friend_id = ?`, id, id); err != nil {
		return fmt.Errorf("sqlite: cleaning up friendships for user %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE user_id = ? OR requester_id = ?`, id, id); err != nil {
		return fmt.Errorf("sqlite: cleaning up friend requests for user %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM saved_projects WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: cleaning up saved projects for user %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete user tx: %w", err)
	}
	return nil
}

// Search matches username, email or display name, case-insensitive
// substring. Relationship sets are not hydrated on search results.
func (s *UserStore) Search(ctx context.Context, query string) ([]model.User, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username LIKE ? OR email LIKE ? OR name LIKE ?
		 ORDER BY username`,
		pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// AddFriendRequest records a pending request from requesterID to userID.
// The insert is idempotent at the store level (set-add); the service rejects
// duplicates before calling this.
func (s *UserStore) AddFriendRequest(ctx context.Context, userID, requesterID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO friend_requests (user_id, requester_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, requester_id) DO NOTHING`,
		userID, requesterID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding friend request %s -> %s: %w", requesterID, userID, err)
	}
	return nil
}

// AcceptFriendRequest consumes the pending request and inserts both
// friendship directions in one transaction. Returns false without changing
// anything if no request was pending — symmetry can never be half-applied.
func (s *UserStore) AcceptFriendRequest(ctx context.Context, userID, requesterID string) (bool, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning accept tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE user_id = ? AND requester_id = ?`,
		userID, requesterID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing friend request: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	now := time.Now()
	for _, pair := range [][2]string{{userID, requesterID}, {requesterID, userID}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO friendships (user_id, friend_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (user_id, friend_id) DO NOTHING`,
			pair[0], pair[1], now,
		); err != nil {
			return false, fmt.Errorf("sqlite: adding friendship %s -> %s: %w", pair[0], pair[1], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing accept tx: %w", err)
	}
	return true, nil
}

// DeclineFriendRequest removes the pending request only — no friendship is
// created in either direction. Returns false if nothing was pending.
func (s *UserStore) DeclineFriendRequest(ctx context.Context, userID, requesterID string) (bool, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE user_id = ? AND requester_id = ?`,
		userID, requesterID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: declining friend request: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Unfriend removes both friendship directions in one transaction.
// Removing a non-existent friendship is a no-op.
func (s *UserStore) Unfriend(ctx context.Context, userID, friendID string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning unfriend tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM friendships
		 WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		userID, friendID, friendID, userID,
	); err != nil {
		return fmt.Errorf("sqlite: removing friendship %s <-> %s: %w", userID, friendID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing unfriend tx: %w", err)
	}
	return nil
}

// SaveProject bookmarks a project for the user. Idempotent.
func (s *UserStore) SaveProject(ctx context.Context, userID, projectID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO saved_projects (user_id, project_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, project_id) DO NOTHING`,
		userID, projectID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving project %s for user %s: %w", projectID, userID, err)
	}
	return nil
}

// UnsaveProject removes a bookmark. Removing a missing bookmark is a no-op.
func (s *UserStore) UnsaveProject(ctx context.Context, userID, projectID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM saved_projects WHERE user_id = ? AND project_id = ?`,
		userID, projectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unsaving project %s for user %s: %w", projectID, userID, err)
	}
	return nil
}
