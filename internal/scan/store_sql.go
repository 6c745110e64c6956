package scan

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"resumescan/internal/store"
	"resumescan/internal/types"
)

// sqlStore persists scans through the guarded repository insert
type sqlStore struct {
	db *sqlx.DB
}

// NewSQLStore creates the Postgres-backed scan store
func NewSQLStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) SaveScan(ctx context.Context, scan *types.ScanRecord, limit int) error {
	// Serializable isolation makes the count-and-insert guard immune to
	// two submissions racing on the last remaining unit
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	return store.InTxWithOptions(ctx, s.db, opts, func(tx *sqlx.Tx) error {
		return store.NewScanRepository(tx).InsertWithinQuota(ctx, scan, limit)
	})
}
