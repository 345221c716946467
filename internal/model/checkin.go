package model

import "time"

// CheckIn is an immutable historical record of a completed check-in.
// It snapshots the username at the time of the event so the history stays
// readable even if the user is later renamed or deleted. CheckIns are never
// updated or deleted.
type CheckIn struct {
	ID           string   `json:"id"`
	ProjectID    string   `json:"projectId"`
	UserID       string   `json:"userId"`
	Username     string   `json:"username"` // denormalized snapshot
	Message      string   `json:"message"`
	Version      string   `json:"version"`
	FilesChanged []string `json:"filesChanged"` // names of the files submitted

	CreatedAt time.Time `json:"createdAt"`
}
