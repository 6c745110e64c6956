package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func sampleScan() *types.ScanRecord {
	return &types.ScanRecord{
		ID:             "scan-1",
		UserID:         "user-1",
		FileName:       "resume.pdf",
		FileSize:       2048,
		JobDescription: "Backend engineer role",
		Score:          82,
		ScanResults:    []byte(`{"score":82}`),
		ScanDate:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertWithinQuotaAdmitsBelowLimit(t *testing.T) {
	db, mock := newMockDB(t)
	scan := sampleScan()

	mock.ExpectExec("INSERT INTO resume_scans").
		WithArgs(scan.ID, scan.UserID, scan.FileName, scan.FileSize,
			scan.JobDescription, scan.Score, []byte(scan.ScanResults), scan.ScanDate, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewScanRepository(db).InsertWithinQuota(context.Background(), scan, 3)
	if err != nil {
		t.Fatalf("InsertWithinQuota returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertWithinQuotaRejectsAtLimit(t *testing.T) {
	db, mock := newMockDB(t)
	scan := sampleScan()

	// The conditional insert matches no rows once the user's count has
	// reached the limit
	mock.ExpectExec("INSERT INTO resume_scans").
		WithArgs(scan.ID, scan.UserID, scan.FileName, scan.FileSize,
			scan.JobDescription, scan.Score, []byte(scan.ScanResults), scan.ScanDate, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewScanRepository(db).InsertWithinQuota(context.Background(), scan, 3)
	if !errors.IsCode(err, errors.ErrCodeQuotaExhausted) {
		t.Fatalf("Expected QUOTA_EXHAUSTED, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertWithinQuotaZeroLimitSkipsGuard(t *testing.T) {
	db, mock := newMockDB(t)
	scan := sampleScan()

	// Subscribers pass a zero limit; the insert carries no count guard
	mock.ExpectExec(`INSERT INTO resume_scans \(id, user_id, file_name, file_size, job_description, score, scan_results, scan_date\)\s+VALUES`).
		WithArgs(scan.ID, scan.UserID, scan.FileName, scan.FileSize,
			scan.JobDescription, scan.Score, []byte(scan.ScanResults), scan.ScanDate).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewScanRepository(db).InsertWithinQuota(context.Background(), scan, 0)
	if err != nil {
		t.Fatalf("InsertWithinQuota returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
