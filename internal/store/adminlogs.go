package store

import (
	"context"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// AdminLogRepository provides access to the append-only admin audit trail
type AdminLogRepository interface {
	Insert(ctx context.Context, log *types.AdminLog) error
	List(ctx context.Context, limit, offset int) ([]types.AdminLog, error)
}

type adminLogRepository struct {
	db DBTX
}

// NewAdminLogRepository creates an admin log repository over a database or transaction
func NewAdminLogRepository(db DBTX) AdminLogRepository {
	return &adminLogRepository{db: db}
}

func (r *adminLogRepository) Insert(ctx context.Context, log *types.AdminLog) error {
	query := `
		INSERT INTO admin_logs (id, action, admin_email, target_user_email, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		log.ID,
		log.Action,
		log.AdminEmail,
		log.TargetUserEmail,
		log.Details,
	).Scan(&log.CreatedAt)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to append admin log", err)
	}

	return nil
}

func (r *adminLogRepository) List(ctx context.Context, limit, offset int) ([]types.AdminLog, error) {
	query := `
		SELECT id, action, admin_email, target_user_email, details, created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	logs := []types.AdminLog{}
	if err := r.db.SelectContext(ctx, &logs, query, limit, offset); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to list admin logs", err)
	}

	return logs, nil
}
