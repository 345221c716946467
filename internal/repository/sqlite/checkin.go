package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

// compile-time check that *CheckInStore implements repository.CheckInRepository
var _ repository.CheckInRepository = (*CheckInStore)(nil)

// CheckInStore reads the immutable check-in history.
type CheckInStore struct {
	db *DB
}

func NewCheckInStore(db *DB) *CheckInStore {
	return &CheckInStore{db: db}
}

// ListByProject returns a project's check-in history, newest first.
// Rows are only ever written by Checkin (project.go); there is no update or
// delete path.
func (s *CheckInStore) ListByProject(ctx context.Context, projectID string) ([]model.CheckIn, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, project_id, user_id, username, message, version, files_changed, created_at
		 FROM checkins
		 WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing check-ins for project %s: %w", projectID, err)
	}
	defer rows.Close()

	checkins := []model.CheckIn{}
	for rows.Next() {
		var c model.CheckIn
		var filesChanged string
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.UserID, &c.Username,
			&c.Message, &c.Version, &filesChanged, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning check-in row: %w", err)
		}
		if err := json.Unmarshal([]byte(filesChanged), &c.FilesChanged); err != nil {
			return nil, fmt.Errorf("sqlite: decoding files changed: %w", err)
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}
