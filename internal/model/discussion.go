package model

import "time"

// Discussion is a single comment on a project's discussion board.
// Comments are append-only per project; they are removed only when the
// project itself is deleted.
type Discussion struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Message   string `json:"message"`

	CreatedAt time.Time `json:"createdAt"`
}
