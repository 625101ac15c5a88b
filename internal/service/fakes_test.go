package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/amine-dev/localq/internal/apperror"
	"github.com/amine-dev/localq/internal/auth"
	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/repository"
)

// In-memory fakes shared by the service tests. What each fake does is
// right here on the page instead of behind a mock framework.

// ---------------------------------------------------------------------------
// fakeUserRepo

type fakeUserRepo struct {
	users   map[string]*model.User // keyed by internal ID
	byEmail map[string]*model.User
	nextID  int
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
		nextID:  1,
	}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, taken := f.byEmail[user.Email]; taken {
		return apperror.Conflict("user", "email")
	}
	user.ID = fmt.Sprintf("user-fake-%d", f.nextID)
	f.nextID++
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	copied := *user
	f.users[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) CountUsers(ctx context.Context) (int, error) {
	return len(f.users), nil
}

// ---------------------------------------------------------------------------
// fakeQuestionRepo

type fakeQuestionRepo struct {
	questions map[string]*model.Question
	order     []string // insertion order, oldest first
	votes     map[string][]string
	nextID    int
}

var _ repository.QuestionRepository = (*fakeQuestionRepo)(nil)

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		questions: make(map[string]*model.Question),
		votes:     make(map[string][]string),
		nextID:    1,
	}
}

func (f *fakeQuestionRepo) CreateQuestion(ctx context.Context, q *model.Question) error {
	q.ID = fmt.Sprintf("question-fake-%d", f.nextID)
	f.nextID++
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	q.Upvotes = []string{}

	copied := *q
	f.questions[q.ID] = &copied
	f.order = append(f.order, q.ID)
	f.votes[q.ID] = []string{}
	return nil
}

func (f *fakeQuestionRepo) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	copied := *q
	copied.Upvotes = append([]string{}, f.votes[id]...)
	return &copied, nil
}

func (f *fakeQuestionRepo) IncrementQuestionViews(ctx context.Context, id string) error {
	q, ok := f.questions[id]
	if !ok {
		return apperror.NotFound("question", id)
	}
	q.Views++
	return nil
}

func (f *fakeQuestionRepo) ListQuestions(ctx context.Context, filter repository.QuestionFilter) ([]model.Question, error) {
	out := []model.Question{}
	for i := len(f.order) - 1; i >= 0; i-- {
		q, _ := f.GetQuestionByID(ctx, f.order[i])
		if filter.City != "" && !strings.EqualFold(q.City, filter.City) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(q.Title, filter.Search) && !strings.Contains(q.Content, filter.Search) {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (f *fakeQuestionRepo) ListQuestionsByAuthor(ctx context.Context, authorID string) ([]model.Question, error) {
	out := []model.Question{}
	for i := len(f.order) - 1; i >= 0; i-- {
		q, _ := f.GetQuestionByID(ctx, f.order[i])
		if q.AuthorID == authorID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) ListQuestionsUpvotedBy(ctx context.Context, userID string) ([]model.Question, error) {
	out := []model.Question{}
	for i := len(f.order) - 1; i >= 0; i-- {
		id := f.order[i]
		for _, voter := range f.votes[id] {
			if voter == userID {
				q, _ := f.GetQuestionByID(ctx, id)
				out = append(out, *q)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) DeleteQuestion(ctx context.Context, id string) error {
	if _, ok := f.questions[id]; !ok {
		return apperror.NotFound("question", id)
	}
	delete(f.questions, id)
	delete(f.votes, id)
	for i, qid := range f.order {
		if qid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeQuestionRepo) ToggleQuestionVote(ctx context.Context, id, userID string) ([]string, error) {
	if _, ok := f.questions[id]; !ok {
		return nil, apperror.NotFound("question", id)
	}
	f.votes[id] = toggleMember(f.votes[id], userID)
	return append([]string{}, f.votes[id]...), nil
}

// ---------------------------------------------------------------------------
// fakeAnswerRepo

type fakeAnswerRepo struct {
	answers map[string]*model.Answer
	order   []string
	votes   map[string][]string
	nextID  int
}

var _ repository.AnswerRepository = (*fakeAnswerRepo)(nil)

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{
		answers: make(map[string]*model.Answer),
		votes:   make(map[string][]string),
		nextID:  1,
	}
}

func (f *fakeAnswerRepo) CreateAnswer(ctx context.Context, a *model.Answer) error {
	a.ID = fmt.Sprintf("answer-fake-%d", f.nextID)
	f.nextID++
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	a.Upvotes = []string{}

	copied := *a
	f.answers[a.ID] = &copied
	f.order = append(f.order, a.ID)
	f.votes[a.ID] = []string{}
	return nil
}

func (f *fakeAnswerRepo) GetAnswerByID(ctx context.Context, id string) (*model.Answer, error) {
	a, ok := f.answers[id]
	if !ok {
		return nil, apperror.NotFound("answer", id)
	}
	copied := *a
	copied.Upvotes = append([]string{}, f.votes[id]...)
	return &copied, nil
}

func (f *fakeAnswerRepo) ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	out := []model.Answer{}
	for i := len(f.order) - 1; i >= 0; i-- {
		a, err := f.GetAnswerByID(ctx, f.order[i])
		if err != nil {
			continue
		}
		if a.QuestionID == questionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAnswerRepo) DeleteAnswer(ctx context.Context, id string) error {
	if _, ok := f.answers[id]; !ok {
		return apperror.NotFound("answer", id)
	}
	delete(f.answers, id)
	delete(f.votes, id)
	return nil
}

func (f *fakeAnswerRepo) ToggleAnswerVote(ctx context.Context, id, userID string) ([]string, error) {
	if _, ok := f.answers[id]; !ok {
		return nil, apperror.NotFound("answer", id)
	}
	f.votes[id] = toggleMember(f.votes[id], userID)
	return append([]string{}, f.votes[id]...), nil
}

// toggleMember mimics the storage layer's set semantics: remove if present,
// append if absent.
func toggleMember(set []string, member string) []string {
	for i, m := range set {
		if m == member {
			return append(set[:i], set[i+1:]...)
		}
	}
	return append(set, member)
}

// ---------------------------------------------------------------------------
// shared helpers

// testLogger discards everything below Error so test output stays readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// Cost 4 is bcrypt's minimum — keeps the suite fast.
func newTestPasswordService() *auth.PasswordService {
	return auth.NewPasswordServiceForTest(4)
}
