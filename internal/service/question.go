package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amine-dev/localq/internal/apperror"
	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/repository"
)

const (
	MaxTitleLength   = 150
	MaxContentLength = 10000
	MaxCityLength    = 100
)

// QuestionService handles business logic for questions.
type QuestionService struct {
	questions repository.QuestionRepository
	logger    *slog.Logger
}

func NewQuestionService(questions repository.QuestionRepository, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		logger:    logger,
	}
}

// Create validates and saves a new question. The author comes from the
// caller's token — a client cannot post on someone else's behalf by putting
// a different author in the body, because the body's author is ignored.
func (s *QuestionService) Create(ctx context.Context, authorID, title, content, city string) (*model.Question, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	city = strings.TrimSpace(city)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	if city == "" {
		return nil, apperror.ValidationFailed("city", "city is required")
	}
	if len(city) > MaxCityLength {
		return nil, apperror.ValidationFailed("city",
			fmt.Sprintf("city must be %d characters or less", MaxCityLength))
	}

	question := &model.Question{
		Title:    title,
		Content:  content,
		City:     city,
		AuthorID: authorID,
	}

	if err := s.questions.CreateQuestion(ctx, question); err != nil {
		return nil, fmt.Errorf("service/question: creating question: %w", err)
	}

	s.logger.Info("question created",
		slog.String("questionID", question.ID),
		slog.String("authorID", authorID),
		slog.String("city", question.City),
	)

	return question, nil
}

// List returns questions newest first, optionally filtered by city and a
// case-insensitive search term.
func (s *QuestionService) List(ctx context.Context, city, search string) ([]model.Question, error) {
	filter := repository.QuestionFilter{
		City:   strings.TrimSpace(city),
		Search: strings.TrimSpace(search),
	}

	questions, err := s.questions.ListQuestions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/question: listing questions: %w", err)
	}
	return questions, nil
}

// Get returns a question's detail and counts the fetch: the view counter is
// bumped by exactly one (atomically, at the storage layer) before the read,
// so the returned record already reflects this visit. Every caller counts,
// authenticated or not — even the author re-reading their own question.
func (s *QuestionService) Get(ctx context.Context, id string) (*model.Question, error) {
	if err := s.questions.IncrementQuestionViews(ctx, id); err != nil {
		return nil, fmt.Errorf("service/question: counting view for %s: %w", id, err)
	}

	question, err := s.questions.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/question: getting question %s: %w", id, err)
	}
	return question, nil
}

// Delete removes a question if and only if the requester is its author.
// Unknown id → NotFound; wrong requester → Forbidden and the question stays.
func (s *QuestionService) Delete(ctx context.Context, id, requesterID string) error {
	question, err := s.questions.GetQuestionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/question: getting question %s: %w", id, err)
	}

	if err := authorizeOwner("question", question.AuthorID, requesterID); err != nil {
		return err
	}

	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return fmt.Errorf("service/question: deleting question %s: %w", id, err)
	}

	s.logger.Info("question deleted",
		slog.String("questionID", id),
		slog.String("authorID", requesterID),
	)

	return nil
}

// ToggleVote flips the requester's upvote on a question and returns the
// resulting upvoter set.
func (s *QuestionService) ToggleVote(ctx context.Context, id, userID string) ([]string, error) {
	upvotes, err := s.questions.ToggleQuestionVote(ctx, id, normalizeID(userID))
	if err != nil {
		return nil, fmt.Errorf("service/question: toggling vote on %s: %w", id, err)
	}
	return upvotes, nil
}

// Mine returns the requester's own questions, newest first.
func (s *QuestionService) Mine(ctx context.Context, userID string) ([]model.Question, error) {
	questions, err := s.questions.ListQuestionsByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/question: listing own questions: %w", err)
	}
	return questions, nil
}

// Liked returns the questions the requester currently upvotes.
func (s *QuestionService) Liked(ctx context.Context, userID string) ([]model.Question, error) {
	questions, err := s.questions.ListQuestionsUpvotedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/question: listing liked questions: %w", err)
	}
	return questions, nil
}
