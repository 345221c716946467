package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

// compile-time check that *ProjectStore implements repository.ProjectRepository
var _ repository.ProjectRepository = (*ProjectStore)(nil)

// ProjectStore implements repository.ProjectRepository on the shared DB
// handle. The lock transitions also write to the checkins and activities
// tables so the side-effect records land in the same transaction as the
// state change.
type ProjectStore struct {
	db *DB
}

func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = `id, name, description, owner_id, languages, type, version, files, status, checked_out_by, created_at, updated_at`

// Create inserts a new project with the owner as its first member.
// Projects start checked in with no lock holder.
func (s *ProjectStore) Create(ctx context.Context, project *model.Project) error {
	project.ID = xid.New().String()
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.Status = model.StatusCheckedIn
	project.CheckedOutBy = ""
	if project.Version == "" {
		project.Version = "1.0.0"
	}
	if project.Languages == nil {
		project.Languages = []string{}
	}
	if project.Files == nil {
		project.Files = []model.ProjectFile{}
	}
	project.Members = []string{project.OwnerID}

	languages, err := json.Marshal(project.Languages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding languages: %w", err)
	}
	files, err := json.Marshal(project.Files)
	if err != nil {
		return fmt.Errorf("sqlite: encoding files: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create project tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		project.ID,
		project.Name,
		project.Description,
		project.OwnerID,
		string(languages),
		project.Type,
		project.Version,
		string(files),
		project.Status,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, created_at) VALUES (?, ?, ?)`,
		project.ID, project.OwnerID, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding owner as member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create project tx: %w", err)
	}
	return nil
}

// GetByID retrieves a project with its member set hydrated.
func (s *ProjectStore) GetByID(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)

	project, err := scanProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}

	project.Members, err = s.db.stringColumn(ctx,
		`SELECT user_id FROM project_members WHERE project_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading members for project %s: %w", id, err)
	}
	return project, nil
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var languages, files string
	var checkedOutBy sql.NullString
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.OwnerID,
		&languages,
		&p.Type,
		&p.Version,
		&files,
		&p.Status,
		&checkedOutBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CheckedOutBy = checkedOutBy.String
	if err := json.Unmarshal([]byte(languages), &p.Languages); err != nil {
		return nil, fmt.Errorf("decoding languages: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &p.Files); err != nil {
		return nil, fmt.Errorf("decoding files: %w", err)
	}
	return &p, nil
}

// ListAll returns every project, newest first.
func (s *ProjectStore) ListAll(ctx context.Context) ([]model.Project, error) {
	return s.listProjects(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
}

// ListByOwner returns the projects owned by ownerID, newest first.
func (s *ProjectStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	return s.listProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC`, ownerID)
}

// ListByIDs returns the projects whose id is in ids. Missing ids are simply
// absent from the result — used for hydrating saved-project bookmarks, where
// a project may have been deleted since it was saved.
func (s *ProjectStore) ListByIDs(ctx context.Context, ids []string) ([]model.Project, error) {
	if len(ids) == 0 {
		return []model.Project{}, nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.listProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id IN (`+placeholders+`)
		 ORDER BY created_at DESC, id DESC`, args...)
}

// Search matches name, description, type or language tags, case-insensitive
// substring, newest first.
func (s *ProjectStore) Search(ctx context.Context, query string) ([]model.Project, error) {
	pattern := "%" + query + "%"
	return s.listProjects(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE name LIKE ? OR description LIKE ? OR type LIKE ? OR languages LIKE ?
		 ORDER BY created_at DESC, id DESC`,
		pattern, pattern, pattern, pattern)
}

func (s *ProjectStore) listProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}

	if err := s.loadMembersFor(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// loadMembersFor hydrates the member sets of a batch of projects with a
// single query.
func (s *ProjectStore) loadMembersFor(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	index := make(map[string]int, len(projects))
	placeholders := make([]string, 0, len(projects))
	args := make([]any, 0, len(projects))
	for i := range projects {
		projects[i].Members = []string{}
		index[projects[i].ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, projects[i].ID)
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT project_id, user_id FROM project_members
		 WHERE project_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY created_at`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading project members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID, userID string
		if err := rows.Scan(&projectID, &userID); err != nil {
			return fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		if i, ok := index[projectID]; ok {
			projects[i].Members = append(projects[i].Members, userID)
		}
	}
	return rows.Err()
}

// Update persists the editable metadata fields (name, description,
// languages, type). The lock fields, files and version only change through
// Checkout/Checkin.
func (s *ProjectStore) Update(ctx context.Context, project *model.Project) error {
	project.UpdatedAt = time.Now()

	languages, err := json.Marshal(project.Languages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding languages: %w", err)
	}

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, languages = ?, type = ?, updated_at = ?
		 WHERE id = ?`,
		project.Name,
		project.Description,
		string(languages),
		project.Type,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating project %s: %w", project.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("project", project.ID)
	}
	return nil
}

// Delete removes the project and its member rows. Check-ins and activities
// referencing it remain — they are facts about the past.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete project tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("project", id)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting members of project %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete project tx: %w", err)
	}
	return nil
}

// AddMember adds a user to the project's member set. Idempotent.
func (s *ProjectStore) AddMember(ctx context.Context, projectID, userID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, userID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding member %s to project %s: %w", userID, projectID, err)
	}
	return nil
}

// RemoveMember removes a user from the member set. Removing a non-member is
// a no-op.
func (s *ProjectStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing member %s from project %s: %w", userID, projectID, err)
	}
	return nil
}

// Checkout acquires the project lock for userID.
//
// The transition is a single conditional UPDATE: the row changes only if it
// is still checked in at write time. Under two concurrent checkouts exactly
// one UPDATE matches; the loser sees zero rows affected and gets a conflict.
// The "checked out" activity is appended in the same transaction, so a
// successful transition always leaves exactly one feed entry.
func (s *ProjectStore) Checkout(ctx context.Context, projectID, userID, username string) (*model.Project, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning checkout tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, checked_out_by = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		model.StatusCheckedOut, userID, time.Now(),
		projectID, model.StatusCheckedIn,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking out project %s: %w", projectID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, s.lockFailure(ctx, tx, projectID, "project is already checked out")
	}

	project, err := getProjectTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}

	if err := appendActivityTx(ctx, tx, &model.Activity{
		UserID:      userID,
		Username:    username,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Action:      model.ActionCheckedOut,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing checkout tx: %w", err)
	}
	return project, nil
}

// Checkin releases the lock held by userID, replacing the project's files
// and version. The condition requires both the checked-out status and the
// matching lock holder — a non-holder's attempt affects zero rows and fails
// with a conflict, leaving the project untouched. The CheckIn record and the
// "checked in" activity are written in the same transaction as the state
// change.
func (s *ProjectStore) Checkin(ctx context.Context, projectID, userID, username string,
	files []model.ProjectFile, message, version string) (*model.Project, error) {

	if files == nil {
		files = []model.ProjectFile{}
	}
	encodedFiles, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding files: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning checkin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE projects
		 SET status = ?, checked_out_by = NULL, files = ?, version = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND checked_out_by = ?`,
		model.StatusCheckedIn, string(encodedFiles), version, time.Now(),
		projectID, model.StatusCheckedOut, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking in project %s: %w", projectID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, s.lockFailure(ctx, tx, projectID, "project is not checked out by you")
	}

	project, err := getProjectTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}

	fileNames := make([]string, len(files))
	for i, f := range files {
		fileNames[i] = f.Name
	}
	encodedNames, err := json.Marshal(fileNames)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding file names: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO checkins (id, project_id, user_id, username, message, version, files_changed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		xid.New().String(), projectID, userID, username, message, version,
		string(encodedNames), time.Now(),
	); err != nil {
		return nil, fmt.Errorf("sqlite: recording check-in for project %s: %w", projectID, err)
	}

	if err := appendActivityTx(ctx, tx, &model.Activity{
		UserID:      userID,
		Username:    username,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Action:      model.ActionCheckedIn,
		Message:     message,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing checkin tx: %w", err)
	}
	return project, nil
}

// lockFailure distinguishes the two reasons a conditional lock update can
// affect zero rows: the project does not exist (not found) or the
// precondition failed (conflict). The probe runs inside the same
// transaction as the failed update.
func (s *ProjectStore) lockFailure(ctx context.Context, tx *sql.Tx, projectID, conflictMsg string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&one)
	if err == sql.ErrNoRows {
		return apperror.NotFound("project", projectID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: probing project %s: %w", projectID, err)
	}
	return apperror.Conflict(conflictMsg)
}

// getProjectTx reads a project row (members included) inside a transaction.
func getProjectTx(ctx context.Context, tx *sql.Tx, projectID string) (*model.Project, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	project, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading project %s: %w", projectID, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT user_id FROM project_members WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading members for project %s: %w", projectID, err)
	}
	defer rows.Close()

	project.Members = []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		project.Members = append(project.Members, userID)
	}
	return project, rows.Err()
}

// appendActivityTx inserts a feed entry inside an existing transaction.
func appendActivityTx(ctx context.Context, tx *sql.Tx, activity *model.Activity) error {
	activity.ID = xid.New().String()
	activity.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, username, project_id, project_name, action, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.UserID,
		activity.Username,
		activity.ProjectID,
		activity.ProjectName,
		activity.Action,
		activity.Message,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending activity: %w", err)
	}
	return nil
}
