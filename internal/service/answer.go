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

const MaxAnswerLength = 10000

// AnswerService handles business logic for answers. It also holds the
// question repository: creating an answer checks the target question exists
// so a dangling reply is rejected with NotFound instead of a foreign-key
// error.
type AnswerService struct {
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	logger    *slog.Logger
}

func NewAnswerService(
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	logger *slog.Logger,
) *AnswerService {
	return &AnswerService{
		answers:   answers,
		questions: questions,
		logger:    logger,
	}
}

// Create validates and saves a new answer to an existing question. As with
// questions, the author comes from the token, never the body.
func (s *AnswerService) Create(ctx context.Context, authorID, content, questionID string) (*model.Answer, error) {
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > MaxAnswerLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxAnswerLength))
	}
	if questionID == "" {
		return nil, apperror.ValidationFailed("questionId", "questionId is required")
	}

	if _, err := s.questions.GetQuestionByID(ctx, questionID); err != nil {
		return nil, fmt.Errorf("service/answer: checking question %s: %w", questionID, err)
	}

	answer := &model.Answer{
		QuestionID: questionID,
		AuthorID:   authorID,
		Content:    content,
	}

	if err := s.answers.CreateAnswer(ctx, answer); err != nil {
		return nil, fmt.Errorf("service/answer: creating answer: %w", err)
	}

	s.logger.Info("answer created",
		slog.String("answerID", answer.ID),
		slog.String("questionID", questionID),
		slog.String("authorID", authorID),
	)

	return answer, nil
}

// ListByQuestion returns a question's answers, newest first.
func (s *AnswerService) ListByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	answers, err := s.answers.ListAnswersByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("service/answer: listing answers for %s: %w", questionID, err)
	}
	return answers, nil
}

// Delete removes an answer if and only if the requester is its author —
// the same rule, via the same helper, as question deletion.
func (s *AnswerService) Delete(ctx context.Context, id, requesterID string) error {
	answer, err := s.answers.GetAnswerByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/answer: getting answer %s: %w", id, err)
	}

	if err := authorizeOwner("answer", answer.AuthorID, requesterID); err != nil {
		return err
	}

	if err := s.answers.DeleteAnswer(ctx, id); err != nil {
		return fmt.Errorf("service/answer: deleting answer %s: %w", id, err)
	}

	s.logger.Info("answer deleted",
		slog.String("answerID", id),
		slog.String("authorID", requesterID),
	)

	return nil
}

// ToggleVote flips the requester's upvote on an answer and returns the
// resulting upvoter set.
func (s *AnswerService) ToggleVote(ctx context.Context, id, userID string) ([]string, error) {
	upvotes, err := s.answers.ToggleAnswerVote(ctx, id, normalizeID(userID))
	if err != nil {
		return nil, fmt.Errorf("service/answer: toggling vote on %s: %w", id, err)
	}
	return upvotes, nil
}
