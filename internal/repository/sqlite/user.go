package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/amine-dev/localq/internal/apperror"
	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user. The caller provides email, password hash, name
// and role; ID and timestamps are filled in here.
//
// A UNIQUE violation on the email column is reported as apperror.Conflict;
// the handler maps that to 409 so registration can tell the frontend "this
// email is taken" without exposing driver error strings.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint failures by message; there
		// is no exported error type to match on.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return apperror.Conflict("user", "email")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID, favorites included.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	if err := db.loadFavorites(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// GetUserByEmail retrieves a user by exact email match. Emails are stored and
// compared case-sensitively, matching how the accounts were created.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	if err := db.loadFavorites(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// CountUsers reports the number of accounts. Startup seeding only runs
// against an empty table.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return count, nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// loadFavorites fills in the user's bookmarked question IDs, newest first.
func (db *DB) loadFavorites(ctx context.Context, u *model.User) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT question_id FROM user_favorites WHERE user_id = ? ORDER BY created_at DESC`,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading favorites for user %s: %w", u.ID, err)
	}
	defer rows.Close()

	u.FavoriteQuestions = []string{}
	for rows.Next() {
		var qid string
		if err := rows.Scan(&qid); err != nil {
			return fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		u.FavoriteQuestions = append(u.FavoriteQuestions, qid)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating favorites: %w", err)
	}

	return nil
}
