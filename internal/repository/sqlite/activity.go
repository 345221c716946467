package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

// compile-time check that *ActivityStore implements repository.ActivityRepository
var _ repository.ActivityRepository = (*ActivityStore)(nil)

// ActivityStore implements the append-only feed on the shared DB handle.
type ActivityStore struct {
	db *DB
}

func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db}
}

const activityColumns = `id, user_id, username, project_id, project_name, action, message, created_at`

// Append records a feed entry. Used directly for "created project"; the
// lock transitions append their entries inside their own transactions
// (see project.go).
func (s *ActivityStore) Append(ctx context.Context, activity *model.Activity) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning append activity tx: %w", err)
	}
	defer tx.Rollback()

	if err := appendActivityTx(ctx, tx, activity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing append activity tx: %w", err)
	}
	return nil
}

// GlobalFeed returns the newest entries across all users, capped at
// repository.FeedLimit.
func (s *ActivityStore) GlobalFeed(ctx context.Context) ([]model.Activity, error) {
	return s.listActivities(ctx,
		`SELECT `+activityColumns+` FROM activities
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		repository.FeedLimit)
}

// LocalFeed returns the newest entries whose actor is in userIDs, capped at
// repository.FeedLimit. The caller supplies {user} ∪ friends.
func (s *ActivityStore) LocalFeed(ctx context.Context, userIDs []string) ([]model.Activity, error) {
	if len(userIDs) == 0 {
		return []model.Activity{}, nil
	}
	placeholders := strings.Repeat("?, ", len(userIDs)-1) + "?"
	args := make([]any, 0, len(userIDs)+1)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, repository.FeedLimit)

	return s.listActivities(ctx,
		`SELECT `+activityColumns+` FROM activities
		 WHERE user_id IN (`+placeholders+`)
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		args...)
}

// ListByProject returns every entry for a project, newest first.
func (s *ActivityStore) ListByProject(ctx context.Context, projectID string) ([]model.Activity, error) {
	return s.listActivities(ctx,
		`SELECT `+activityColumns+` FROM activities
		 WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC`,
		projectID)
}

// Search matches the message field, case-insensitive substring, newest
// first. Unlike the feeds, results are not capped.
func (s *ActivityStore) Search(ctx context.Context, query string) ([]model.Activity, error) {
	return s.listActivities(ctx,
		`SELECT `+activityColumns+` FROM activities
		 WHERE message LIKE ?
		 ORDER BY created_at DESC, id DESC`,
		"%"+query+"%")
}

func (s *ActivityStore) listActivities(ctx context.Context, query string, args ...any) ([]model.Activity, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities: %w", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Username, &a.ProjectID,
			&a.ProjectName, &a.Action, &a.Message, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity row: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
