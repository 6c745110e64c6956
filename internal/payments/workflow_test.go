package payments

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"resumescan/internal/config"
	"resumescan/internal/errors"
	"resumescan/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelError)

// fakeStore implements Store and TxStore in memory. WithinTx applies fn
// to a copy of the state and only keeps it when fn succeeds, mirroring
// transactional rollback.
type fakeStore struct {
	users         map[string]*types.User // keyed by email
	payments      []types.PaymentRecord
	subscriptions []types.Subscription
	adminLogs     []types.AdminLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*types.User)}
}

func (f *fakeStore) InsertPayment(ctx context.Context, payment *types.PaymentRecord) error {
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	snapshot := &fakeStore{
		users:         f.users,
		payments:      append([]types.PaymentRecord(nil), f.payments...),
		subscriptions: append([]types.Subscription(nil), f.subscriptions...),
		adminLogs:     append([]types.AdminLog(nil), f.adminLogs...),
	}
	if err := fn(snapshot); err != nil {
		return err
	}
	f.payments = snapshot.payments
	f.subscriptions = snapshot.subscriptions
	f.adminLogs = snapshot.adminLogs
	return nil
}

func (f *fakeStore) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, errors.NewStoreError(errors.ErrCodeUserNotFound, "User not found", nil)
	}
	return user, nil
}

func (f *fakeStore) LatestPendingPayment(ctx context.Context, userID string) (*types.PaymentRecord, error) {
	var latest *types.PaymentRecord
	for i := range f.payments {
		p := &f.payments[i]
		if p.UserID != userID || p.Verified {
			continue
		}
		if latest == nil || p.PaymentDate.After(latest.PaymentDate) {
			latest = p
		}
	}
	if latest == nil {
		return nil, errors.NewPaymentError(errors.ErrCodeNoPendingPayment, "No pending payment found", nil)
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeStore) MarkPaymentVerified(ctx context.Context, id, adminEmail string, at time.Time) error {
	for i := range f.payments {
		if f.payments[i].ID != id {
			continue
		}
		if f.payments[i].Verified {
			return errors.NewPaymentError(errors.ErrCodeAlreadyVerified, "Payment was already verified", nil)
		}
		f.payments[i].Verified = true
		f.payments[i].VerifiedBy = &adminEmail
		f.payments[i].VerifiedAt = &at
		return nil
	}
	return errors.NewPaymentError(errors.ErrCodeAlreadyVerified, "Payment was already verified", nil)
}

func (f *fakeStore) ActiveSubscription(ctx context.Context, userID string, now time.Time) (*types.Subscription, error) {
	for i := range f.subscriptions {
		s := &f.subscriptions[i]
		if s.UserID == userID && s.Active && now.Before(s.EndDate) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ExtendSubscription(ctx context.Context, id string, newEnd time.Time) error {
	for i := range f.subscriptions {
		if f.subscriptions[i].ID == id {
			f.subscriptions[i].EndDate = newEnd
			f.subscriptions[i].Active = true
			return nil
		}
	}
	return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Subscription not found", nil)
}

func (f *fakeStore) CreateSubscription(ctx context.Context, sub *types.Subscription) error {
	f.subscriptions = append(f.subscriptions, *sub)
	return nil
}

func (f *fakeStore) AppendAdminLog(ctx context.Context, log *types.AdminLog) error {
	f.adminLogs = append(f.adminLogs, *log)
	return nil
}

type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) NotifyChange(ctx context.Context, userID string) {
	f.notified = append(f.notified, userID)
}

func testWorkflowConfig() config.EntitlementConfig {
	return config.EntitlementConfig{
		FreeScanLimit:        3,
		PremiumScanLimit:     15,
		SubscriptionDuration: 7 * 24 * time.Hour,
	}
}

func newTestWorkflow(store *fakeStore, notifier ChangeNotifier) *Workflow {
	return NewWorkflow(store, testWorkflowConfig(), notifier, testLogger)
}

func seedUser(store *fakeStore, id, email string) {
	store.users[email] = &types.User{ID: id, Email: email, Role: types.RoleUser}
}

func TestSubmitCreatesPendingClaim(t *testing.T) {
	store := newFakeStore()
	w := newTestWorkflow(store, nil)

	payment, err := w.Submit(context.Background(), "user-1", SubmitInput{
		ContactEmail: " Jane@Example.COM ",
		PhoneNumber:  " 0712345678 ",
		MpesaCode:    " qx12abc34 ",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if payment.Verified {
		t.Error("New claim must start unverified")
	}
	if payment.ContactEmail != "jane@example.com" {
		t.Errorf("ContactEmail = %q, want normalized lowercase", payment.ContactEmail)
	}
	if payment.MpesaCode != "QX12ABC34" {
		t.Errorf("MpesaCode = %q, want normalized uppercase", payment.MpesaCode)
	}
	if len(store.payments) != 1 {
		t.Fatalf("Expected 1 stored payment, got %d", len(store.payments))
	}
}

func TestSubmitAllowsDuplicateCodes(t *testing.T) {
	store := newFakeStore()
	w := newTestWorkflow(store, nil)

	input := SubmitInput{ContactEmail: "a@b.com", PhoneNumber: "0712", MpesaCode: "SAME1"}
	if _, err := w.Submit(context.Background(), "user-1", input); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	if _, err := w.Submit(context.Background(), "user-2", input); err != nil {
		t.Fatalf("Duplicate code submit failed: %v", err)
	}

	if len(store.payments) != 2 {
		t.Errorf("Expected 2 stored payments, got %d", len(store.payments))
	}
}

func TestVerifyGrantsNewSubscription(t *testing.T) {
	store := newFakeStore()
	seedUser(store, "user-1", "jane@example.com")
	notifier := &fakeNotifier{}
	w := newTestWorkflow(store, notifier)

	if _, err := w.Submit(context.Background(), "user-1", SubmitInput{
		ContactEmail: "jane@example.com", PhoneNumber: "0712", MpesaCode: "QX1",
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := w.Verify(context.Background(), "admin@example.com", "jane@example.com")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if !result.Payment.Verified {
		t.Error("Payment should be marked verified")
	}
	if result.Payment.VerifiedBy == nil || *result.Payment.VerifiedBy != "admin@example.com" {
		t.Error("VerifiedBy should record the admin")
	}
	if result.Extended {
		t.Error("First verification should create, not extend")
	}

	if len(store.subscriptions) != 1 {
		t.Fatalf("Expected 1 subscription, got %d", len(store.subscriptions))
	}
	sub := store.subscriptions[0]
	wantEnd := sub.StartDate.Add(7 * 24 * time.Hour)
	if !sub.EndDate.Equal(wantEnd) {
		t.Errorf("EndDate = %v, want %v", sub.EndDate, wantEnd)
	}

	if len(store.adminLogs) != 1 {
		t.Fatalf("Expected 1 admin log entry, got %d", len(store.adminLogs))
	}
	if store.adminLogs[0].Action != "verify_payment" {
		t.Errorf("Admin log action = %q, want verify_payment", store.adminLogs[0].Action)
	}

	if len(notifier.notified) != 1 || notifier.notified[0] != "user-1" {
		t.Errorf("Expected change notification for user-1, got %v", notifier.notified)
	}
}

func TestVerifyExtendsActiveSubscription(t *testing.T) {
	store := newFakeStore()
	seedUser(store, "user-1", "jane@example.com")
	w := newTestWorkflow(store, nil)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	existingEnd := now.Add(48 * time.Hour)
	store.subscriptions = append(store.subscriptions, types.Subscription{
		ID: "sub-1", UserID: "user-1", StartDate: now.Add(-5 * 24 * time.Hour),
		EndDate: existingEnd, Active: true,
	})

	if _, err := w.Submit(context.Background(), "user-1", SubmitInput{
		ContactEmail: "jane@example.com", PhoneNumber: "0712", MpesaCode: "QX2",
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := w.Verify(context.Background(), "admin@example.com", "jane@example.com")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if !result.Extended {
		t.Error("Verification with an active subscription should extend it")
	}
	// Renewal sets the end date to a full duration from the verification
	// time; it does not stack onto the old end date
	wantEnd := now.Add(7 * 24 * time.Hour)
	if !result.SubscriptionEndDate.Equal(wantEnd) {
		t.Errorf("SubscriptionEndDate = %v, want %v", result.SubscriptionEndDate, wantEnd)
	}
	if result.SubscriptionEndDate.Equal(existingEnd.Add(7 * 24 * time.Hour)) {
		t.Error("End date must not be computed from the previous end date")
	}
	if len(store.subscriptions) != 1 {
		t.Errorf("Extension must not create a second subscription, got %d", len(store.subscriptions))
	}
	if !store.subscriptions[0].EndDate.Equal(wantEnd) {
		t.Errorf("Stored EndDate = %v, want %v", store.subscriptions[0].EndDate, wantEnd)
	}
}

func TestVerifyPreconditionFailures(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		store := newFakeStore()
		w := newTestWorkflow(store, nil)

		_, err := w.Verify(context.Background(), "admin@example.com", "ghost@example.com")
		if !errors.IsCode(err, errors.ErrCodeUserNotFound) {
			t.Errorf("Expected USER_NOT_FOUND, got %v", err)
		}
	})

	t.Run("no pending payment", func(t *testing.T) {
		store := newFakeStore()
		seedUser(store, "user-1", "jane@example.com")
		w := newTestWorkflow(store, nil)

		_, err := w.Verify(context.Background(), "admin@example.com", "jane@example.com")
		if !errors.IsCode(err, errors.ErrCodeNoPendingPayment) {
			t.Errorf("Expected NO_PENDING_PAYMENT, got %v", err)
		}
	})
}

func TestVerifyIsIdempotent(t *testing.T) {
	store := newFakeStore()
	seedUser(store, "user-1", "jane@example.com")
	w := newTestWorkflow(store, nil)

	if _, err := w.Submit(context.Background(), "user-1", SubmitInput{
		ContactEmail: "jane@example.com", PhoneNumber: "0712", MpesaCode: "QX3",
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	first, err := w.Verify(context.Background(), "admin@example.com", "jane@example.com")
	if err != nil {
		t.Fatalf("First verify failed: %v", err)
	}

	// The second verify finds no pending claim; nothing is granted twice
	_, err = w.Verify(context.Background(), "admin@example.com", "jane@example.com")
	if !errors.IsCode(err, errors.ErrCodeNoPendingPayment) {
		t.Errorf("Expected NO_PENDING_PAYMENT on repeat verify, got %v", err)
	}

	if len(store.subscriptions) != 1 {
		t.Fatalf("Expected 1 subscription after repeat verify, got %d", len(store.subscriptions))
	}
	if !store.subscriptions[0].EndDate.Equal(first.SubscriptionEndDate) {
		t.Error("Repeat verify must not move the subscription end date")
	}
	if len(store.adminLogs) != 1 {
		t.Errorf("Expected 1 admin log entry, got %d", len(store.adminLogs))
	}
}

func TestVerifyRollsBackOnFailure(t *testing.T) {
	store := newFakeStore()
	seedUser(store, "user-1", "jane@example.com")
	w := newTestWorkflow(store, nil)

	if _, err := w.Submit(context.Background(), "user-1", SubmitInput{
		ContactEmail: "jane@example.com", PhoneNumber: "0712", MpesaCode: "QX4",
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Pre-verify the claim behind the workflow's back so the conditional
	// update inside the transaction fails
	admin := "other@example.com"
	at := time.Now()
	if err := store.MarkPaymentVerified(context.Background(), store.payments[0].ID, admin, at); err != nil {
		t.Fatalf("Setup verify failed: %v", err)
	}

	_, err := w.Verify(context.Background(), "admin@example.com", "jane@example.com")
	if !errors.IsCode(err, errors.ErrCodeNoPendingPayment) && !errors.IsCode(err, errors.ErrCodeAlreadyVerified) {
		t.Errorf("Expected precondition error, got %v", err)
	}

	if len(store.subscriptions) != 0 {
		t.Errorf("Failed verify must not leave a subscription behind, got %d", len(store.subscriptions))
	}
	if len(store.adminLogs) != 0 {
		t.Errorf("Failed verify must not leave an audit row behind, got %d", len(store.adminLogs))
	}
}
