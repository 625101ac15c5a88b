// Package service contains the business logic layer: validation, ownership
// rules, and orchestration between repositories and the auth primitives.
// Handlers stay HTTP-only; repositories stay SQL-only; everything in between
// lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amine-dev/localq/internal/apperror"
	"github.com/amine-dev/localq/internal/auth"
	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/repository"
)

// ErrNoOAuthIdentity is returned by LoginOrRegisterGoogle when the upstream
// provider produced no usable identity. It is deliberately distinct from the
// other auth failures: the callback handler turns it into a redirect with an
// error marker rather than an error response, because a user halfway through
// a Google login must never land on a server error page.
var ErrNoOAuthIdentity = errors.New("service/auth: no identity from OAuth provider")

// invalidCredentials is the single rejection for the password login path.
// One message for "no such account" and "wrong password" alike, so the
// endpoint can't be used to probe which emails are registered.
func invalidCredentials() error {
	return apperror.Unauthorized("invalid email or password")
}

// AuthService orchestrates credential validation, OAuth account linkage, and
// token issuance.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user with the issued token so the
// handler can respond in one step. The user's password hash never serializes
// (json:"-" on the model).
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login validates an email/password pair and issues a token.
//
// Rejections: unknown email, wrong password, and OAuth-only accounts (empty
// stored hash, which bcrypt refuses to match against anything) all produce
// the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issue(user)
}

// LoginOrRegisterGoogle handles an externally-verified Google identity.
//
// The linkage is an explicit lookup-then-conditional-insert so the
// idempotency is visible in code: the first login creates a local account
// with an empty password hash, every later login reuses it, and a lost race
// against a concurrent first login falls back to the row the winner wrote.
// No re-linking or email-change logic — an existing account is used as-is.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil || gUser.Email == "" {
		return nil, ErrNoOAuthIdentity
	}

	user, err := s.users.GetUserByEmail(ctx, gUser.Email)
	switch {
	case err == nil:
		// local-account-exists: use as-is.
	case errors.Is(err, apperror.ErrNotFound):
		// no-local-account: provision one with an empty password hash.
		user = &model.User{
			Email:     gUser.Email,
			FirstName: gUser.FirstName,
			LastName:  gUser.LastName,
		}
		if createErr := s.users.CreateUser(ctx, user); createErr != nil {
			if errors.Is(createErr, apperror.ErrConflict) {
				// A concurrent first login won the insert; use its row.
				user, err = s.users.GetUserByEmail(ctx, gUser.Email)
				if err != nil {
					return nil, fmt.Errorf("service/auth: refetching user after conflict: %w", err)
				}
			} else {
				return nil, fmt.Errorf("service/auth: creating user from Google identity: %w", createErr)
			}
		} else {
			s.logger.Info("user provisioned from Google identity",
				slog.String("userID", user.ID),
				slog.String("email", user.Email),
			)
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issue(user)
}

// issue signs a token for the user and returns the combined result.
func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}
