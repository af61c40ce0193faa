package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/prepnest/prepnest-backend/internal/enrollment"
	"github.com/prepnest/prepnest-backend/internal/payments"
	"github.com/prepnest/prepnest-backend/pkg/db"
	"github.com/prepnest/prepnest-backend/pkg/db/models"
	"github.com/prepnest/prepnest-backend/pkg/enums"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
	"github.com/prepnest/prepnest-backend/pkg/logger"
	"github.com/prepnest/prepnest-backend/pkg/metrics"
	"github.com/prepnest/prepnest-backend/pkg/outbox"
	"github.com/prepnest/prepnest-backend/pkg/outbox/payloads"
)

// SignatureVerifier checks the per-transaction callback signature.
type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// Emitter stages domain events inside the settlement transaction.
type Emitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service settles payments reported by the browser callback and by webhooks.
// Both paths converge on one transaction body whose serialization point is
// the unique verification record per gateway order.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*Result, error)
	HandleCaptured(ctx context.Context, input CapturedInput) error
	HandleFailed(ctx context.Context, input FailedInput) error
}

// VerifyInput is the signed callback a client posts after checkout.
type VerifyInput struct {
	UserID           uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// CapturedInput is a payment.captured webhook notification.
type CapturedInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	PaymentMethod    string
}

// FailedInput is a payment.failed webhook notification.
type FailedInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	FailureReason    string
}

// Result reports how a settlement concluded, including what the payment
// bought.
type Result struct {
	OrderID        uuid.UUID   `json:"order_id"`
	GatewayOrderID string      `json:"gateway_order_id"`
	SeriesIDs      []uuid.UUID `json:"series_ids"`
	AmountPaise    int64       `json:"amount_paise"`
	AlreadySettled bool        `json:"already_settled"`
}

type service struct {
	txRunner      payments.TxRunner
	orders        payments.Repository
	verifications VerificationRepository
	grantor       enrollment.Grantor
	verifier      SignatureVerifier
	emitter       Emitter
	logg          *logger.Logger
	payments      *metrics.PaymentMetrics
	maxTxAttempts int
	retryBackoff  time.Duration
}

// NewService wires the settlement orchestrator.
func NewService(
	txRunner payments.TxRunner,
	orders payments.Repository,
	verifications VerificationRepository,
	grantor enrollment.Grantor,
	verifier SignatureVerifier,
	emitter Emitter,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
	maxTxAttempts int,
	retryBackoff time.Duration,
) (Service, error) {
	if txRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if verifications == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if grantor == nil {
		return nil, fmt.Errorf("enrollment grantor required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxTxAttempts <= 0 {
		maxTxAttempts = 3
	}
	if retryBackoff <= 0 {
		retryBackoff = 100 * time.Millisecond
	}
	return &service{
		txRunner:      txRunner,
		orders:        orders,
		verifications: verifications,
		grantor:       grantor,
		verifier:      verifier,
		emitter:       emitter,
		logg:          logg,
		payments:      paymentMetrics,
		maxTxAttempts: maxTxAttempts,
		retryBackoff:  retryBackoff,
	}, nil
}

// Verify settles a payment from the signed browser callback. The signature is
// checked before any state is touched; an already-settled order acks without
// re-granting.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id, payment id and signature are required")
	}

	ctx = s.logg.WithGatewayOrderID(ctx, input.GatewayOrderID)

	if record, err := s.verifications.FindByGatewayOrderID(ctx, input.GatewayOrderID); err == nil {
		if record.Status == enums.VerificationStatusCompleted {
			s.logg.Info(ctx, "payment already verified, acking replay")
			s.incSettlement(enums.SettlementPathCallback, "replayed")
			order, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
			if err != nil {
				return nil, err
			}
			return &Result{
				OrderID:        order.ID,
				GatewayOrderID: input.GatewayOrderID,
				SeriesIDs:      orderSeriesIDs(order),
				AmountPaise:    order.AmountPaise,
				AlreadySettled: true,
			}, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment previously failed verification")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	if !s.verifier.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		s.incSettlement(enums.SettlementPathCallback, "signature_invalid")
		s.logg.Warn(ctx, "payment signature verification failed")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment signature invalid")
	}

	order, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}

	settled, err := s.settleCaptured(ctx, order, input.GatewayPaymentID, "", enums.SettlementPathCallback)
	if err != nil {
		return nil, err
	}
	return &Result{
		OrderID:        order.ID,
		GatewayOrderID: input.GatewayOrderID,
		SeriesIDs:      orderSeriesIDs(order),
		AmountPaise:    order.AmountPaise,
		AlreadySettled: !settled,
	}, nil
}

// HandleCaptured settles a payment reported by a payment.captured webhook.
// Webhooks are at-least-once and may arrive before or after the callback;
// replays ack cleanly.
func (s *service) HandleCaptured(ctx context.Context, input CapturedInput) error {
	if input.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway order id is required")
	}

	ctx = s.logg.WithGatewayOrderID(ctx, input.GatewayOrderID)

	order, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// A captured payment with no matching order means money moved
			// without a purchase record. Surface the failure for manual
			// recovery instead of acking it away.
			s.incSettlement(enums.SettlementPathWebhook, "unknown_order")
			s.logg.Error(ctx, "captured payment references unknown order", err)
		}
		return err
	}

	enrolled, err := s.grantor.AnyEnrolled(ctx, order.UserID, orderSeriesIDs(order))
	if err != nil {
		return err
	}
	if enrolled {
		s.incSettlement(enums.SettlementPathWebhook, "replayed")
		s.logg.Info(ctx, "user already holds purchased items, acking webhook")
		return nil
	}

	_, err = s.settleCaptured(ctx, order, input.GatewayPaymentID, input.PaymentMethod, enums.SettlementPathWebhook)
	return err
}

// HandleFailed records a failed payment reported by a payment.failed webhook.
func (s *service) HandleFailed(ctx context.Context, input FailedInput) error {
	if input.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway order id is required")
	}

	ctx = s.logg.WithGatewayOrderID(ctx, input.GatewayOrderID)

	order, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(ctx, "failure webhook references unknown order, acking")
			return nil
		}
		return err
	}

	run := func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			verifications := s.verifications.WithTx(tx)
			if _, err := verifications.FindByGatewayOrderID(ctx, order.GatewayOrderID); err == nil {
				// A settlement or earlier failure already holds the slot.
				return nil
			} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
				return err
			}

			record := &models.PaymentVerification{
				UserID:         order.UserID,
				GatewayOrderID: order.GatewayOrderID,
				ItemIDs:        mustItemIDs(order),
				AmountPaise:    order.AmountPaise,
				Status:         enums.VerificationStatusFailed,
			}
			if input.GatewayPaymentID != "" {
				record.GatewayPaymentID = &input.GatewayPaymentID
			}
			if input.FailureReason != "" {
				record.FailureReason = &input.FailureReason
			}
			if err := verifications.Create(ctx, record); err != nil {
				if db.IsUniqueViolation(err, "uq_payment_verifications") {
					return nil
				}
				return err
			}

			if err := s.orders.WithTx(tx).MarkStatus(ctx, order.ID, enums.OrderStatusFailed); err != nil {
				return err
			}

			return s.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventPaymentFailed,
				AggregateType: enums.AggregateTypeOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.PaymentFailedEvent{
					OrderID:        order.ID,
					UserID:         order.UserID,
					GatewayOrderID: order.GatewayOrderID,
					FailureReason:  input.FailureReason,
				},
			})
		})
	}

	if err := s.withTransientRetry(ctx, run); err != nil {
		s.incSettlement(enums.SettlementPathWebhook, "error")
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment failure")
	}

	s.incSettlement(enums.SettlementPathWebhook, "failed")
	s.logg.Info(ctx, "payment failure recorded")
	return nil
}

// settleCaptured runs the exactly-once settlement transaction. It reports
// whether this call performed the settlement (false means a previous
// settlement already existed).
func (s *service) settleCaptured(ctx context.Context, order *models.Order, paymentID, method string, path enums.SettlementPath) (bool, error) {
	started := time.Now()
	settledHere := false

	run := func(ctx context.Context) error {
		settledHere = false
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			verifications := s.verifications.WithTx(tx)

			// Re-checked every attempt: the other ingress path may have
			// settled between retries.
			if existing, err := verifications.FindByGatewayOrderID(ctx, order.GatewayOrderID); err == nil {
				if existing.Status == enums.VerificationStatusCompleted {
					return nil
				}
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order previously failed verification")
			} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
				return err
			}

			record := &models.PaymentVerification{
				UserID:         order.UserID,
				GatewayOrderID: order.GatewayOrderID,
				ItemIDs:        mustItemIDs(order),
				AmountPaise:    order.AmountPaise,
				Status:         enums.VerificationStatusCompleted,
			}
			if paymentID != "" {
				record.GatewayPaymentID = &paymentID
			}
			if method != "" {
				record.PaymentMethod = &method
			}
			if err := verifications.Create(ctx, record); err != nil {
				// Losing the insert race means the other path settled first.
				if db.IsUniqueViolation(err, "uq_payment_verifications") {
					return nil
				}
				return err
			}

			seriesIDs := orderSeriesIDs(order)
			if err := s.grantor.WithTx(tx).Grant(ctx, order.UserID, seriesIDs); err != nil {
				return err
			}

			if err := s.orders.WithTx(tx).MarkStatus(ctx, order.ID, enums.OrderStatusPaid); err != nil {
				return err
			}

			settledHere = true
			return s.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventPaymentSettled,
				AggregateType: enums.AggregateTypeOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.PaymentSettledEvent{
					OrderID:          order.ID,
					UserID:           order.UserID,
					GatewayOrderID:   order.GatewayOrderID,
					GatewayPaymentID: paymentID,
					SeriesIDs:        seriesIDs,
					AmountPaise:      order.AmountPaise,
					SettledVia:       string(path),
				},
			})
		})
	}

	if err := s.withTransientRetry(ctx, run); err != nil {
		s.incSettlement(path, "error")
		if typed := pkgerrors.As(err); typed != nil {
			return false, err
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling payment")
	}

	s.observeSettlement(path, time.Since(started))
	if settledHere {
		s.incSettlement(path, "settled")
		s.logg.Info(ctx, "payment settled and entitlements granted")
	} else {
		s.incSettlement(path, "replayed")
		s.logg.Info(ctx, "payment already settled, acking")
	}
	return settledHere, nil
}

// withTransientRetry retries fn with exponential backoff when the database
// reports a serialization failure or deadlock. Domain errors pass through
// untouched.
func (s *service) withTransientRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.maxTxAttempts-1), retry.NewExponential(s.retryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if db.IsTransientConflict(err) {
			s.logg.Warn(ctx, "settlement transaction hit transient conflict, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *service) incSettlement(path enums.SettlementPath, outcome string) {
	if s.payments == nil {
		return
	}
	s.payments.IncSettlement(string(path), outcome)
}

func (s *service) observeSettlement(path enums.SettlementPath, d time.Duration) {
	if s.payments == nil {
		return
	}
	s.payments.ObserveSettlement(string(path), d)
}

func orderSeriesIDs(order *models.Order) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.SeriesID)
	}
	return ids
}

func mustItemIDs(order *models.Order) json.RawMessage {
	encoded, err := json.Marshal(orderSeriesIDs(order))
	if err != nil {
		return json.RawMessage("[]")
	}
	return encoded
}
