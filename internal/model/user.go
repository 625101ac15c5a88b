// Package model defines the data structures used throughout the application.
package model

import "time"

// Roles a user account can carry. New accounts default to RoleUser;
// RoleAdmin is only ever assigned manually (there is no promotion endpoint).
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// PasswordHash is tagged `json:"-"` so it can never leak through any read
// path — every handler that returns a User relies on this. Accounts created
// through the Google OAuth flow store an empty string here; bcrypt can never
// verify a password against an empty hash, so such accounts are locked out
// of the password login path by construction.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"` // unique, stored case-sensitively
	PasswordHash string `json:"-"`     // bcrypt hash, "" for OAuth-originated accounts
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         string `json:"role"` // "user" or "admin"
	// FavoriteQuestions holds question IDs the user bookmarked.
	// Read-only in this release — populated on profile reads.
	FavoriteQuestions []string  `json:"favoriteQuestions"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
