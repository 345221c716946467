// Package service contains the business logic layer. Services accept
// primitives and return domain models and apperror values; they know nothing
// about HTTP. Handlers translate in both directions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reardon/codeverse/internal/apperror"
	"github.com/reardon/codeverse/internal/auth"
	"github.com/reardon/codeverse/internal/model"
	"github.com/reardon/codeverse/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
)

// AuthService handles registration, login and the GitHub OAuth upsert.
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

// AuthResult bundles the user and the issued session token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new password-based account and issues a session token.
// A taken username or email is a conflict. The UNIQUE constraints in the
// store back this up under concurrent registration.
func (s *AuthService) Register(ctx context.Context, username, email, password, name, bio string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength))
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("username already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password could not be hashed")
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Bio:          strings.TrimSpace(bio),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issueToken(user)
}

// Login verifies email + password. Bad credentials always come back as the
// same unauthorized error, whether the email is unknown or the password
// wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("fetching user by email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issueToken(user)
}

// LoginOrRegisterGitHub handles the OAuth callback: find the account linked
// to this GitHub ID, or create one on first login. The derived username gets
// a numeric suffix if the GitHub login is already taken locally.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("github user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	if err == nil {
		s.logger.Info("user logged in via GitHub", slog.String("userID", user.ID))
		return s.issueToken(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("fetching user by github id: %w", err)
	}

	username, err := s.availableUsername(ctx, ghUser.Login)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(ghUser.Email))
	if email == "" {
		// GitHub hides the email when the user opts out of sharing it.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}

	user = &model.User{
		Username: username,
		Email:    email,
		GitHubID: ghUser.ID,
		Name:     ghUser.Login,
		Avatar:   ghUser.AvatarURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating github user: %w", err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issueToken(user)
}

// GetUserByID returns the full user record. Used by the /api/me handler
// after the middleware extracts the user ID from the token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) issueToken(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) availableUsername(ctx context.Context, base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "github-user"
	}
	candidate := base
	for i := 2; ; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking username %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
