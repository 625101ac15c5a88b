package model

import "time"

// AuthorSummary is the slice of a User that is safe to embed in question and
// answer reads: just enough for the frontend to display "asked by X", never
// the email or password hash.
type AuthorSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Question is an author-owned post tied to a city.
//
// Upvotes is the set of user IDs that currently upvote the question. The
// storage layer keeps it in a junction table with a composite primary key,
// so membership is unique and toggling is a single atomic statement rather
// than a fetch-then-save (which would lose updates under concurrent toggles).
type Question struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Content  string        `json:"content"`
	City     string        `json:"city"` // free-text locality label
	AuthorID string        `json:"authorId"`
	Author   AuthorSummary `json:"author"`
	// Views counts detail fetches. Incremented by exactly one per
	// GET /questions/{id}, regardless of caller identity.
	Views     int       `json:"views"`
	Upvotes   []string  `json:"upvotes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
