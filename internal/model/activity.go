package model

import "time"

// Activity actions recorded in the feed.
const (
	ActionCreatedProject = "created project"
	ActionCheckedOut     = "checked out"
	ActionCheckedIn      = "checked in"
)

// Activity is an append-only feed entry recording a state-changing action.
// Like CheckIn, it snapshots the username and project name so feed entries
// remain meaningful after the referenced records change or disappear.
type Activity struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	Action      string `json:"action"`
	Message     string `json:"message,omitempty"` // check-in message, empty otherwise

	CreatedAt time.Time `json:"createdAt"`
}
