package payments

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"resumescan/internal/store"
	"resumescan/internal/types"
)

// sqlStore implements Store over the Postgres repositories
type sqlStore struct {
	db *sqlx.DB
}

// NewSQLStore creates the Postgres-backed payment workflow store
func NewSQLStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) InsertPayment(ctx context.Context, payment *types.PaymentRecord) error {
	return store.NewPaymentRepository(s.db).Insert(ctx, payment)
}

func (s *sqlStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return store.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&sqlTxStore{tx: tx})
	})
}

// sqlTxStore exposes the repositories bound to one transaction
type sqlTxStore struct {
	tx *sqlx.Tx
}

func (s *sqlTxStore) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	return store.NewUserRepository(s.tx).GetByEmail(ctx, email)
}

func (s *sqlTxStore) LatestPendingPayment(ctx context.Context, userID string) (*types.PaymentRecord, error) {
	return store.NewPaymentRepository(s.tx).LatestPendingByUser(ctx, userID)
}

func (s *sqlTxStore) MarkPaymentVerified(ctx context.Context, id, adminEmail string, at time.Time) error {
	return store.NewPaymentRepository(s.tx).MarkVerified(ctx, id, adminEmail, at)
}

func (s *sqlTxStore) ActiveSubscription(ctx context.Context, userID string, now time.Time) (*types.Subscription, error) {
	return store.NewSubscriptionRepository(s.tx).ActiveForUser(ctx, userID, now)
}

func (s *sqlTxStore) ExtendSubscription(ctx context.Context, id string, newEnd time.Time) error {
	return store.NewSubscriptionRepository(s.tx).ExtendEnd(ctx, id, newEnd)
}

func (s *sqlTxStore) CreateSubscription(ctx context.Context, sub *types.Subscription) error {
	return store.NewSubscriptionRepository(s.tx).Create(ctx, sub)
}

func (s *sqlTxStore) AppendAdminLog(ctx context.Context, log *types.AdminLog) error {
	return store.NewAdminLogRepository(s.tx).Insert(ctx, log)
}
