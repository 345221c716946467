package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

// compile-time check that *DiscussionStore implements repository.DiscussionRepository
var _ repository.DiscussionRepository = (*DiscussionStore)(nil)

// DiscussionStore persists per-project comments on the shared DB handle.
type DiscussionStore struct {
	db *DB
}

func NewDiscussionStore(db *DB) *DiscussionStore {
	return &DiscussionStore{db: db}
}

// Create appends a comment to a project's discussion board. The caller's
// struct gets the generated ID and timestamp.
func (s *DiscussionStore) Create(ctx context.Context, discussion *model.Discussion) error {
	discussion.ID = xid.New().String()
	discussion.CreatedAt = time.Now()

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO discussions (id, project_id, user_id, username, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		discussion.ID,
		discussion.ProjectID,
		discussion.UserID,
		discussion.Username,
		discussion.Message,
		discussion.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating discussion: %w", err)
	}
	return nil
}

// ListByProject returns a project's comments, newest first.
func (s *DiscussionStore) ListByProject(ctx context.Context, projectID string) ([]model.Discussion, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, project_id, user_id, username, message, created_at
		 FROM discussions
		 WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing discussions for project %s: %w", projectID, err)
	}
	defer rows.Close()

	discussions := []model.Discussion{}
	for rows.Next() {
		var d model.Discussion
		if err := rows.Scan(
			&d.ID, &d.ProjectID, &d.UserID, &d.Username, &d.Message, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning discussion row: %w", err)
		}
		discussions = append(discussions, d)
	}
	return discussions, rows.Err()
}

// DeleteByProject removes every comment for a project. Called when the
// project itself is deleted.
func (s *DiscussionStore) DeleteByProject(ctx context.Context, projectID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM discussions WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting discussions for project %s: %w", projectID, err)
	}
	return nil
}
