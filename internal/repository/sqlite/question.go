package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/amine-dev/localq/internal/apperror"
	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/repository"
)

// compile-time check that *DB implements repository.QuestionRepository
var _ repository.QuestionRepository = (*DB)(nil)

// questionColumns is the SELECT list shared by every question read: the
// question row joined with its author's display name.
const questionColumns = `
	q.id, q.title, q.content, q.city, q.author_id, q.views,
	q.created_at, q.updated_at, u.first_name, u.last_name`

// CreateQuestion inserts a new question. ID and timestamps are filled in here; the
// author ID must already be set by the service (taken from the token, never
// from the request body).
func (db *DB) CreateQuestion(ctx context.Context, question *model.Question) error {
	now := time.Now()
	question.ID = xid.New().String()
	question.CreatedAt = now
	question.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, title, content, city, author_id, views, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		question.ID,
		question.Title,
		question.Content,
		question.City,
		question.AuthorID,
		question.CreatedAt,
		question.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}

	question.Upvotes = []string{}
	return nil
}

// GetQuestionByID retrieves a single question with its author summary and upvoter
// set. Returns apperror.ErrNotFound for an unknown id.
func (db *DB) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := db.conn.QueryRowContext(ctx,
		`SELECT`+questionColumns+`
		 FROM questions q
		 JOIN users u ON u.id = q.author_id
		 WHERE q.id = ?`,
		id,
	).Scan(
		&q.ID, &q.Title, &q.Content, &q.City, &q.AuthorID, &q.Views,
		&q.CreatedAt, &q.UpdatedAt, &q.Author.FirstName, &q.Author.LastName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}

	upvotes, err := db.questionVotes(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.Upvotes = upvotes

	return &q, nil
}

// IncrementQuestionViews bumps the view counter by exactly one. A single UPDATE is
// atomic under concurrent detail fetches: no fetch-then-save, no lost
// increments.
func (db *DB) IncrementQuestionViews(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE questions SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views for question %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("question", id)
	}

	return nil
}

// ListQuestions retrieves questions newest first, optionally narrowed by city and a
// case-insensitive substring search over title and content.
func (db *DB) ListQuestions(ctx context.Context, filter repository.QuestionFilter) ([]model.Question, error) {
	query := `SELECT` + questionColumns + `
		 FROM questions q
		 JOIN users u ON u.id = q.author_id`
	var args []any
	var where []string

	if filter.City != "" {
		where = append(where, `q.city = ? COLLATE NOCASE`)
		args = append(args, filter.City)
	}
	if filter.Search != "" {
		// SQLite's LIKE is case-insensitive for ASCII by default.
		where = append(where, `(q.title LIKE '%' || ? || '%' OR q.content LIKE '%' || ? || '%')`)
		args = append(args, filter.Search, filter.Search)
	}

	for i, clause := range where {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query += ` ORDER BY q.created_at DESC, q.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return db.queryQuestions(ctx, query, args...)
}

// ListQuestionsByAuthor returns the given user's questions, newest first.
func (db *DB) ListQuestionsByAuthor(ctx context.Context, authorID string) ([]model.Question, error) {
	return db.queryQuestions(ctx,
		`SELECT`+questionColumns+`
		 FROM questions q
		 JOIN users u ON u.id = q.author_id
		 WHERE q.author_id = ?
		 ORDER BY q.created_at DESC, q.id DESC`,
		authorID,
	)
}

// ListQuestionsUpvotedBy returns the questions the given user currently upvotes,
// newest first.
func (db *DB) ListQuestionsUpvotedBy(ctx context.Context, userID string) ([]model.Question, error) {
	return db.queryQuestions(ctx,
		`SELECT`+questionColumns+`
		 FROM questions q
		 JOIN users u ON u.id = q.author_id
		 JOIN question_votes v ON v.question_id = q.id
		 WHERE v.user_id = ?
		 ORDER BY q.created_at DESC, q.id DESC`,
		userID,
	)
}

// DeleteQuestion removes a question. Answers, votes, and favorite entries go with it
// via ON DELETE CASCADE. Returns apperror.ErrNotFound for an unknown id,
// the ownership check happens in the service, before this is called.
func (db *DB) DeleteQuestion(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting question %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("question", id)
	}

	return nil
}

// ToggleQuestionVote flips the user's membership in the question's upvoter set and
// returns the resulting set.
//
// The whole flip runs inside one transaction: SQLite serializes writers, so
// two simultaneous toggles by the same user cannot both observe "absent" and
// double-insert (the composite primary key would reject the second anyway).
// This is the atomic add/remove the fetch-then-save approach can't give.
func (db *DB) ToggleQuestionVote(ctx context.Context, id, userID string) ([]string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning vote transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking question %s: %w", id, err)
	}
	if exists == 0 {
		return nil, apperror.NotFound("question", id)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM question_votes WHERE question_id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: removing vote: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	if removed == 0 {
		// Not a member yet, so this toggle is a "like".
		_, err = tx.ExecContext(ctx,
			`INSERT INTO question_votes (question_id, user_id, created_at) VALUES (?, ?, ?)`,
			id, userID, time.Now(),
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: adding vote: %w", err)
		}
	}

	upvotes, err := votesInTx(ctx, tx,
		`SELECT user_id FROM question_votes WHERE question_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing vote transaction: %w", err)
	}

	return upvotes, nil
}

// questionVotes returns the upvoter set for one question.
func (db *DB) questionVotes(ctx context.Context, id string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM question_votes WHERE question_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading votes for question %s: %w", id, err)
	}
	return collectIDs(rows)
}

// queryQuestions runs a multi-row question query and fills each result's
// upvoter set.
func (db *DB) queryQuestions(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.Title, &q.Content, &q.City, &q.AuthorID, &q.Views,
			&q.CreatedAt, &q.UpdatedAt, &q.Author.FirstName, &q.Author.LastName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}

	for i := range questions {
		upvotes, err := db.questionVotes(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Upvotes = upvotes
	}

	return questions, nil
}

// votesInTx collects a user-id column inside an open transaction.
func votesInTx(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading votes: %w", err)
	}
	return collectIDs(rows)
}

// collectIDs drains a single-column string result set and closes it.
func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating votes: %w", err)
	}

	return ids, nil
}
