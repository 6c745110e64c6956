package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"resumescan/internal/errors"
	"resumescan/internal/store"
	"resumescan/internal/types"
)

const sessionKeyPrefix = "session:"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service manages user accounts and opaque bearer sessions.
// Session tokens live in Redis under session:<token> with the user ID as
// the value; logging out deletes the key.
type Service struct {
	users      store.UserRepository
	redis      *redis.Client
	sessionTTL time.Duration
	logger     *errors.Logger
}

// NewService creates the auth service
func NewService(users store.UserRepository, redisClient *redis.Client, sessionTTL time.Duration, logger *errors.Logger) *Service {
	return &Service{
		users:      users,
		redis:      redisClient,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// SignupInput carries a registration request
type SignupInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"fullName" validate:"required"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// Session is an authenticated session handed back to the caller
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *types.User `json:"user"`
}

// Signup registers a new account and opens a session for it
func (s *Service) Signup(ctx context.Context, input SignupInput) (*Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validate.Struct(input); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Invalid signup request", err)
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, errors.NewAuthError(errors.ErrCodeBadCredentials, "Failed to hash password", err)
	}

	user := &types.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FullName:     input.FullName,
		PhoneNumber:  input.PhoneNumber,
		PasswordHash: passwordHash,
		Role:         types.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID)

	return s.openSession(ctx, user)
}

// Login verifies credentials and opens a session
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeUserNotFound) {
			// Burn the same hashing cost so account existence cannot be probed
			_, _ = VerifyPasswordTimingSafe(password, "")
			return nil, errors.NewAuthError(errors.ErrCodeBadCredentials, "Invalid email or password", nil)
		}
		return nil, err
	}

	valid, err := VerifyPasswordTimingSafe(password, user.PasswordHash)
	if err != nil {
		return nil, errors.NewAuthError(errors.ErrCodeBadCredentials, "Invalid email or password", err)
	}
	if !valid {
		return nil, errors.NewAuthError(errors.ErrCodeBadCredentials, "Invalid email or password", nil)
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return s.openSession(ctx, user)
}

// Logout deletes the session token
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to delete session", err)
	}
	return nil
}

// UserFromToken resolves a bearer token to its user.
// Returns ErrCodeInvalidSession for unknown or expired tokens.
func (s *Service) UserFromToken(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidSession, "Missing session token", nil)
	}

	userID, err := s.redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidSession, "Session expired or unknown", nil)
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to look up session", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeUserNotFound) {
			return nil, errors.NewAuthError(errors.ErrCodeInvalidSession, "Session user no longer exists", err)
		}
		return nil, err
	}

	return user, nil
}

func (s *Service) openSession(ctx context.Context, user *types.User) (*Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidSession, "Failed to generate session token", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+token, user.ID, s.sessionTTL).Err(); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to store session", err)
	}

	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.sessionTTL),
		User:      user,
	}, nil
}
