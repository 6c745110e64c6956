package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"resumescan/internal/config"
	"resumescan/internal/errors"
	"resumescan/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TxStore is the store surface the verification workflow uses inside one
// transaction. Every step below either all commits or all rolls back.
type TxStore interface {
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	LatestPendingPayment(ctx context.Context, userID string) (*types.PaymentRecord, error)
	MarkPaymentVerified(ctx context.Context, id, adminEmail string, at time.Time) error
	ActiveSubscription(ctx context.Context, userID string, now time.Time) (*types.Subscription, error)
	ExtendSubscription(ctx context.Context, id string, newEnd time.Time) error
	CreateSubscription(ctx context.Context, sub *types.Subscription) error
	AppendAdminLog(ctx context.Context, log *types.AdminLog) error
}

// Store is the persistence surface for the payment workflow
type Store interface {
	InsertPayment(ctx context.Context, payment *types.PaymentRecord) error
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}

// ChangeNotifier is told when a user's entitlement changed so cached
// snapshots can be dropped
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, userID string)
}

// Workflow implements the manual M-Pesa payment claim and verification flow
type Workflow struct {
	store    Store
	cfg      config.EntitlementConfig
	notifier ChangeNotifier
	logger   *errors.Logger
	now      func() time.Time
}

// NewWorkflow creates the payment workflow
func NewWorkflow(store Store, cfg config.EntitlementConfig, notifier ChangeNotifier, logger *errors.Logger) *Workflow {
	return &Workflow{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitInput carries a user's payment claim
type SubmitInput struct {
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	PhoneNumber  string `json:"phoneNumber" validate:"required"`
	MpesaCode    string `json:"mpesaCode" validate:"required"`
}

// Submit records a pending payment claim for the authenticated user.
// Claims are taken on trust at this point; nothing is granted until an
// admin verifies the M-Pesa code out of band.
func (w *Workflow) Submit(ctx context.Context, userID string, input SubmitInput) (*types.PaymentRecord, error) {
	input.ContactEmail = strings.ToLower(strings.TrimSpace(input.ContactEmail))
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.MpesaCode = strings.ToUpper(strings.TrimSpace(input.MpesaCode))

	if err := validate.Struct(input); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Invalid payment claim", err)
	}

	payment := &types.PaymentRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		ContactEmail: input.ContactEmail,
		PhoneNumber:  input.PhoneNumber,
		MpesaCode:    input.MpesaCode,
		PaymentDate:  w.now(),
		Verified:     false,
	}

	if err := w.store.InsertPayment(ctx, payment); err != nil {
		return nil, err
	}

	w.logger.Info("Payment claim submitted",
		"payment_id", payment.ID,
		"user_id", userID)

	return payment, nil
}

// VerifyResult reports what a successful verification did
type VerifyResult struct {
	Payment             *types.PaymentRecord `json:"payment"`
	UserID              string               `json:"userId"`
	SubscriptionEndDate time.Time            `json:"subscriptionEndDate"`
	Extended            bool                 `json:"extended"` // true when an existing subscription was extended
}

// Verify marks the target user's latest pending claim as verified and
// grants or extends their subscription, atomically. Each precondition
// failure carries its own error code: user not found, no pending payment,
// already verified.
func (w *Workflow) Verify(ctx context.Context, adminEmail, targetEmail string) (*VerifyResult, error) {
	targetEmail = strings.ToLower(strings.TrimSpace(targetEmail))
	now := w.now()

	var result VerifyResult

	err := w.store.WithinTx(ctx, func(tx TxStore) error {
		user, err := tx.UserByEmail(ctx, targetEmail)
		if err != nil {
			return err
		}

		payment, err := tx.LatestPendingPayment(ctx, user.ID)
		if err != nil {
			return err
		}

		if err := tx.MarkPaymentVerified(ctx, payment.ID, adminEmail, now); err != nil {
			return err
		}
		payment.Verified = true
		payment.VerifiedBy = &adminEmail
		verifiedAt := now
		payment.VerifiedAt = &verifiedAt

		sub, err := tx.ActiveSubscription(ctx, user.ID, now)
		if err != nil {
			return err
		}

		// Every verification sets the end date to one full duration from
		// now, whether it starts a subscription or renews one
		endDate := now.Add(w.cfg.SubscriptionDuration)
		if sub != nil {
			if err := tx.ExtendSubscription(ctx, sub.ID, endDate); err != nil {
				return err
			}
			result.Extended = true
		} else {
			newSub := &types.Subscription{
				ID:        uuid.NewString(),
				UserID:    user.ID,
				StartDate: now,
				EndDate:   endDate,
				Active:    true,
			}
			if err := tx.CreateSubscription(ctx, newSub); err != nil {
				return err
			}
		}

		details, _ := json.Marshal(map[string]any{
			"paymentId":  payment.ID,
			"mpesaCode":  payment.MpesaCode,
			"newEndDate": endDate,
			"extended":   result.Extended,
		})

		if err := tx.AppendAdminLog(ctx, &types.AdminLog{
			ID:              uuid.NewString(),
			Action:          "verify_payment",
			AdminEmail:      adminEmail,
			TargetUserEmail: targetEmail,
			Details:         details,
		}); err != nil {
			return err
		}

		result.Payment = payment
		result.UserID = user.ID
		result.SubscriptionEndDate = endDate
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("Payment verified",
		"payment_id", result.Payment.ID,
		"admin", adminEmail,
		"target", targetEmail,
		"subscription_end", result.SubscriptionEndDate,
		"extended", result.Extended)

	if w.notifier != nil {
		w.notifier.NotifyChange(ctx, result.UserID)
	}

	return &result, nil
}
