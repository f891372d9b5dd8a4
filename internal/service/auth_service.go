package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/utils"
)

// UserStore is the credential store used by AuthService.  Both
// repository.UserRepo and repository.MemoryUserStore satisfy it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

const maxUsernameLen = 50

// SignupInput is the data required to register a user.
type SignupInput struct {
	Username string
	Password string
	Email    string
}

// AuthService registers users and exchanges credentials for access tokens.
type AuthService struct {
	users  UserStore
	hasher utils.PasswordHasher
	tokens *utils.TokenIssuer
	now    func() time.Time
}

func NewAuthService(users UserStore, hasher utils.PasswordHasher, tokens *utils.TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Signup creates a USER account.  The username check runs before hashing
// so a taken name never costs a bcrypt round; a concurrent insert that
// slips past it is caught by the unique index and reported the same way.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	fe := fieldErrors{}
	switch {
	case username == "":
		fe.add("username", "is required")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		fe.add("username", fmt.Sprintf("must be at most %d characters", maxUsernameLen))
	}
	if in.Password == "" {
		fe.add("password", "is required")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if exists {
		return nil, ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return nil, invalid("password", "must be at most 72 bytes")
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         model.RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrDuplicateUsername
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, invalid("email", "is already registered")
		}
		return nil, fmt.Errorf("signup: %w", err)
	}
	return u, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
	username = strings.TrimSpace(username)
	fe := fieldErrors{}
	if username == "" {
		fe.add("username", "is required")
	}
	if password == "" {
		fe.add("password", "is required")
	}
	if err := fe.err(); err != nil {
		return utils.AccessToken{}, err
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.AccessToken{}, ErrUserNotFound
		}
		return utils.AccessToken{}, fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return utils.AccessToken{}, ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return utils.AccessToken{}, fmt.Errorf("login: %w", err)
	}
	return tok, nil
}

// Me returns the account behind an authenticated user id.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return u, nil
}
