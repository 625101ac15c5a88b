// Package repository declares the storage interfaces the service layer
// programs against. The concrete implementation lives in repository/sqlite;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/amine-dev/localq/internal/model"
)

// QuestionFilter narrows a question list. Zero value means "everything,
// newest first".
type QuestionFilter struct {
	// City matches the question's city label exactly, ignoring case.
	City string
	// Search is a case-insensitive substring match over title and content.
	Search string
	Limit  int
	Offset int
}

type UserRepository interface {
	// CreateUser inserts a new user. Fails with apperror.ErrConflict when
	// the email is already taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail looks a user up by exact (case-sensitive) email match.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// CountUsers reports how many accounts exist. Used by startup seeding.
	CountUsers(ctx context.Context) (int, error)
}

type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question *model.Question) error
	// GetQuestionByID returns the question with its author summary and
	// upvoter set.
	GetQuestionByID(ctx context.Context, id string) (*model.Question, error)
	// IncrementQuestionViews bumps the view counter by exactly one in a
	// single atomic statement. Returns apperror.ErrNotFound for an unknown
	// id.
	IncrementQuestionViews(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error)
	ListQuestionsByAuthor(ctx context.Context, authorID string) ([]model.Question, error)
	// ListQuestionsUpvotedBy returns the questions the given user currently
	// upvotes.
	ListQuestionsUpvotedBy(ctx context.Context, userID string) ([]model.Question, error)
	// DeleteQuestion removes the question along with its answers and votes.
	DeleteQuestion(ctx context.Context, id string) error
	// ToggleQuestionVote adds userID to the question's upvoter set if
	// absent, removes it if present, and returns the resulting set. The
	// membership flip happens at the storage layer, not as a
	// read-modify-write.
	ToggleQuestionVote(ctx context.Context, id, userID string) ([]string, error)
}

type AnswerRepository interface {
	CreateAnswer(ctx context.Context, answer *model.Answer) error
	GetAnswerByID(ctx context.Context, id string) (*model.Answer, error)
	ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error)
	DeleteAnswer(ctx context.Context, id string) error
	ToggleAnswerVote(ctx context.Context, id, userID string) ([]string, error)
}
