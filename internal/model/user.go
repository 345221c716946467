// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The primary identity is email + password (bcrypt hash), with GitHub OAuth
// as an optional alternative: GitHubID is 0 for accounts that never linked
// GitHub. We generate our own xid string IDs rather than exposing a
// third-party numbering scheme as our primary key.
//
// Friends, FriendRequests and SavedProjects are set-valued: order carries no
// meaning and an ID appears at most once. The store keeps them in join
// tables; they are hydrated onto the struct when a user is loaded. A user ID
// never appears in its own Friends or FriendRequests set.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"` // unique handle
	Email        string `json:"email"`    // unique
	PasswordHash string `json:"-"`        // bcrypt hash, never serialized
	GitHubID     int64  `json:"githubId,omitempty"`
	Name         string `json:"name"` // display name
	Bio          string `json:"bio"`
	Avatar       string `json:"avatar"` // avatar image URL (may be empty)

	Friends        []string `json:"friends"`        // user IDs, symmetric
	FriendRequests []string `json:"friendRequests"` // pending incoming requester IDs
	SavedProjects  []string `json:"savedProjects"`  // bookmarked project IDs

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
