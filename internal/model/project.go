package model

import "time"

// Project status values. A project is either available (checked in) or
// exclusively locked by one user (checked out). There is no third state.
const (
	StatusCheckedIn  = "checked-in"
	StatusCheckedOut = "checked-out"
)

// ProjectFile is a single named file belonging to a project. Files are
// stored inline with the project — there is no separate blob store.
type ProjectFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Project is a shareable unit of code.
//
// Invariant: Status == StatusCheckedOut exactly when CheckedOutBy is
// non-empty, and the holder is always a member (the owner is a member too).
// Both fields are only ever written together in a single conditional update,
// so the pair can never be observed half-set.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OwnerID     string        `json:"ownerId"`
	Members     []string      `json:"members"` // user IDs, owner included
	Languages   []string      `json:"languages"`
	Type        string        `json:"type"`    // free-form category tag
	Version     string        `json:"version"` // semantic version string
	Files       []ProjectFile `json:"files"`   // ordered

	Status       string `json:"status"` // StatusCheckedIn or StatusCheckedOut
	CheckedOutBy string `json:"checkedOutBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsMember reports whether userID is a member of the project.
func (p *Project) IsMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}
