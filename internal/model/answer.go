package model

import "time"

// Answer is a reply to exactly one Question, owned by exactly one author.
// Like Question, the Upvotes set lives in a junction table so it can hold
// each user at most once.
type Answer struct {
	ID         string        `json:"id"`
	QuestionID string        `json:"questionId"`
	Content    string        `json:"content"`
	AuthorID   string        `json:"authorId"`
	Author     AuthorSummary `json:"author"`
	Upvotes    []string      `json:"upvotes"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
