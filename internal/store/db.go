package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"resumescan/internal/config"
	"resumescan/internal/errors"
)

// Database wraps the sqlx connection pool
type Database struct {
	DB     *sqlx.DB
	logger *errors.Logger
}

// NewDatabase opens a Postgres connection pool and verifies connectivity
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *errors.Logger) (*Database, error) {
	dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid database URL", err)
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to connect to database", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to ping database", err)
	}

	logger.Info("Database connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns)

	return &Database{DB: db, logger: logger}, nil
}

// resolveDSN applies the Vault-resolved password, if any, to the URL
func resolveDSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.Password == "" {
		return cfg.URL, nil
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", err
	}
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, cfg.Password)
	return u.String(), nil
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// Ping verifies the database is reachable
func (d *Database) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.DB.PingContext(pingCtx); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Database ping failed", err)
	}
	return nil
}

// Stats exposes pool statistics for health reporting
func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

// Migrate runs all embedded migrations forward
func (d *Database) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.DB.DB, "migrations"); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to run migrations", err)
	}
	d.logger.Info("Database migrations applied")
	return nil
}

// MigrateDown rolls back the most recent migration
func (d *Database) MigrateDown(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.DownContext(ctx, d.DB.DB, "migrations"); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to roll back migration", err)
	}
	d.logger.Info("Rolled back one migration")
	return nil
}

// MigrationStatus prints the applied/pending state of every migration
func (d *Database) MigrationStatus(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.StatusContext(ctx, d.DB.DB, "migrations"); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to read migration status", err)
	}
	return nil
}

// DBTX is the query surface shared by *sqlx.DB and *sqlx.Tx, so repositories
// can run inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InTx runs fn inside a transaction, rolling back on error or panic
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	return InTxWithOptions(ctx, db, nil, fn)
}

// InTxWithOptions runs fn inside a transaction with explicit options
func InTxWithOptions(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
