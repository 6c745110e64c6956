package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// UserRepository provides access to user accounts
type UserRepository interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	List(ctx context.Context, limit, offset int) ([]types.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a user repository over a database or transaction
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *types.User) error {
	query := `
		INSERT INTO users (id, email, full_name, phone_number, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.PhoneNumber,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return errors.NewAuthError(errors.ErrCodeEmailTaken, "Email is already registered", err)
		}
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to create user", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	query := `
		SELECT id, email, full_name, phone_number, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	var user types.User
	err := r.db.GetContext(ctx, &user, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewStoreError(errors.ErrCodeUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to get user", err)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `
		SELECT id, email, full_name, phone_number, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1`

	var user types.User
	err := r.db.GetContext(ctx, &user, query, email)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewStoreError(errors.ErrCodeUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to get user by email", err)
	}

	return &user, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]types.User, error) {
	query := `
		SELECT id, email, full_name, phone_number, password_hash, role, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	users := []types.User{}
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to list users", err)
	}

	return users, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
