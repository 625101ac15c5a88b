package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/amine-dev/localq/internal/apperror"
	"github.com/amine-dev/localq/internal/auth"
	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/repository"
)

const (
	MaxEmailLength = 254
	MaxNameLength  = 100
)

// emailPattern is a pragmatic format check, not a full RFC 5322 parser:
// something before an @, something after, a dot in the domain.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserService handles registration and profile reads.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a local account.
//
// The password is optional: an empty one produces an empty stored hash, the
// same shape the Google flow creates, which means the account cannot log in
// with a password until one is set through some future mechanism. A
// non-empty password is bcrypt-hashed before it ever reaches the repository.
func (s *UserService) Register(ctx context.Context, email, password, firstName, lastName string) (*model.User, error) {
	email = strings.TrimSpace(email)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength || !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "email format is invalid")
	}
	if len(firstName) > MaxNameLength {
		return nil, apperror.ValidationFailed("firstName",
			fmt.Sprintf("first name must be %d characters or less", MaxNameLength))
	}
	if len(lastName) > MaxNameLength {
		return nil, apperror.ValidationFailed("lastName",
			fmt.Sprintf("last name must be %d characters or less", MaxNameLength))
	}

	hash := ""
	if password != "" {
		var err error
		hash, err = s.passwords.Hash(password)
		if err != nil {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         model.RoleUser,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Duplicate email surfaces as apperror.ErrConflict from the repo.
		return nil, fmt.Errorf("service/user: registering %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	user.FavoriteQuestions = []string{}
	return user, nil
}

// Profile returns a user's own profile, favorites included. The password
// hash stays out of the response via the model's json tag.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading profile %s: %w", userID, err)
	}
	return user, nil
}

// Seed creates two well-known development accounts when the user table is
// empty. Disabled unless SEED_USERS is set — the default passwords are
// logged on purpose so a developer can log straight in.
func (s *UserService) Seed(ctx context.Context) error {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("service/user: counting users before seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	seeds := []struct {
		email, password, firstName, lastName, role string
	}{
		{"admin@localq.com", "password123", "Admin", "System", model.RoleAdmin},
		{"patient@localq.com", "password123", "Amine", "Patient", model.RoleUser},
	}

	for _, seed := range seeds {
		hash, err := s.passwords.Hash(seed.password)
		if err != nil {
			return fmt.Errorf("service/user: hashing seed password: %w", err)
		}
		user := &model.User{
			Email:        seed.email,
			PasswordHash: hash,
			FirstName:    seed.firstName,
			LastName:     seed.lastName,
			Role:         seed.role,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("service/user: seeding %s: %w", seed.email, err)
		}
		s.logger.Info("seeded test user",
			slog.String("email", seed.email),
			slog.String("password", seed.password),
		)
	}

	return nil
}
