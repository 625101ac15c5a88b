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

// compile-time check that *DB implements repository.AnswerRepository
var _ repository.AnswerRepository = (*DB)(nil)

const answerColumns = `
	a.id, a.question_id, a.content, a.author_id,
	a.created_at, a.updated_at, u.first_name, u.last_name`

// CreateAnswer inserts a new answer. The service has already verified the target
// question exists; the foreign key backs that up at the storage level.
func (db *DB) CreateAnswer(ctx context.Context, answer *model.Answer) error {
	now := time.Now()
	answer.ID = xid.New().String()
	answer.CreatedAt = now
	answer.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, author_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		answer.ID,
		answer.QuestionID,
		answer.AuthorID,
		answer.Content,
		answer.CreatedAt,
		answer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating answer: %w", err)
	}

	answer.Upvotes = []string{}
	return nil
}

// GetAnswerByID retrieves a single answer with author summary and upvoter set.
func (db *DB) GetAnswerByID(ctx context.Context, id string) (*model.Answer, error) {
	var a model.Answer
	err := db.conn.QueryRowContext(ctx,
		`SELECT`+answerColumns+`
		 FROM answers a
		 JOIN users u ON u.id = a.author_id
		 WHERE a.id = ?`,
		id,
	).Scan(
		&a.ID, &a.QuestionID, &a.Content, &a.AuthorID,
		&a.CreatedAt, &a.UpdatedAt, &a.Author.FirstName, &a.Author.LastName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %s: %w", id, err)
	}

	upvotes, err := db.answerVotes(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Upvotes = upvotes

	return &a, nil
}

// ListAnswersByQuestion returns a question's answers, newest first.
func (db *DB) ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT`+answerColumns+`
		 FROM answers a
		 JOIN users u ON u.id = a.author_id
		 WHERE a.question_id = ?
		 ORDER BY a.created_at DESC, a.id DESC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for question %s: %w", questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(
			&a.ID, &a.QuestionID, &a.Content, &a.AuthorID,
			&a.CreatedAt, &a.UpdatedAt, &a.Author.FirstName, &a.Author.LastName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}

	for i := range answers {
		upvotes, err := db.answerVotes(ctx, answers[i].ID)
		if err != nil {
			return nil, err
		}
		answers[i].Upvotes = upvotes
	}

	return answers, nil
}

// DeleteAnswer removes an answer and its votes (via cascade).
func (db *DB) DeleteAnswer(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting answer %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("answer", id)
	}

	return nil
}

// ToggleAnswerVote flips the user's membership in the answer's upvoter set,
// same mechanics as the question toggle.
func (db *DB) ToggleAnswerVote(ctx context.Context, id, userID string) ([]string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning vote transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking answer %s: %w", id, err)
	}
	if exists == 0 {
		return nil, apperror.NotFound("answer", id)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM answer_votes WHERE answer_id = ? AND user_id = ?`,
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
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answer_votes (answer_id, user_id, created_at) VALUES (?, ?, ?)`,
			id, userID, time.Now(),
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: adding vote: %w", err)
		}
	}

	upvotes, err := votesInTx(ctx, tx,
		`SELECT user_id FROM answer_votes WHERE answer_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing vote transaction: %w", err)
	}

	return upvotes, nil
}

// answerVotes returns the upvoter set for one answer.
func (db *DB) answerVotes(ctx context.Context, id string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM answer_votes WHERE answer_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading votes for answer %s: %w", id, err)
	}
	return collectIDs(rows)
}
