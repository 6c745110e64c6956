package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// ScanRepository provides access to completed resume scans
type ScanRepository interface {
	// InsertWithinQuota inserts the scan only if the user's scan count is
	// still below limit. Returns ErrCodeQuotaExhausted when the guard
	// rejects the insert. A limit of zero or less inserts unconditionally,
	// for callers whose subscription removes the quota.
	InsertWithinQuota(ctx context.Context, scan *types.ScanRecord, limit int) error
	GetByID(ctx context.Context, id string) (*types.ScanRecord, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]types.ScanRecord, error)
}

type scanRepository struct {
	db DBTX
}

// NewScanRepository creates a scan repository over a database or transaction
func NewScanRepository(db DBTX) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) InsertWithinQuota(ctx context.Context, scan *types.ScanRecord, limit int) error {
	if limit <= 0 {
		return r.insert(ctx, scan)
	}

	// The insert and the count are evaluated in one statement so two
	// concurrent submissions at the last remaining unit cannot both pass.
	// Run inside a serializable transaction for a hard guarantee.
	query := `
		INSERT INTO resume_scans (id, user_id, file_name, file_size, job_description, score, scan_results, scan_date)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE (SELECT COUNT(*) FROM resume_scans WHERE user_id = $2) < $9`

	result, err := r.db.ExecContext(ctx, query,
		scan.ID,
		scan.UserID,
		scan.FileName,
		scan.FileSize,
		scan.JobDescription,
		scan.Score,
		scan.ScanResults,
		scan.ScanDate,
		limit,
	)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to insert scan", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to insert scan", err)
	}
	if rows == 0 {
		return errors.NewEntitlementError(errors.ErrCodeQuotaExhausted, "Scan limit reached", nil)
	}

	return nil
}

func (r *scanRepository) insert(ctx context.Context, scan *types.ScanRecord) error {
	query := `
		INSERT INTO resume_scans (id, user_id, file_name, file_size, job_description, score, scan_results, scan_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		scan.ID,
		scan.UserID,
		scan.FileName,
		scan.FileSize,
		scan.JobDescription,
		scan.Score,
		scan.ScanResults,
		scan.ScanDate,
	)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to insert scan", err)
	}
	return nil
}

func (r *scanRepository) GetByID(ctx context.Context, id string) (*types.ScanRecord, error) {
	query := `
		SELECT id, user_id, file_name, file_size, job_description, score, scan_results, scan_date
		FROM resume_scans
		WHERE id = $1`

	var scan types.ScanRecord
	err := r.db.GetContext(ctx, &scan, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewStoreError(errors.ErrCodeScanNotFound, "Scan not found", err)
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to get scan", err)
	}

	return &scan, nil
}

func (r *scanRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM resume_scans WHERE user_id = $1`, userID)
	if err != nil {
		return 0, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to count scans", err)
	}
	return count, nil
}

func (r *scanRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]types.ScanRecord, error) {
	query := `
		SELECT id, user_id, file_name, file_size, job_description, score, scan_results, scan_date
		FROM resume_scans
		WHERE user_id = $1
		ORDER BY scan_date DESC
		LIMIT $2 OFFSET $3`

	scans := []types.ScanRecord{}
	if err := r.db.SelectContext(ctx, &scans, query, userID, limit, offset); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to list scans", err)
	}

	return scans, nil
}
