package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prepnest/prepnest-backend/internal/catalog"
	"github.com/prepnest/prepnest-backend/pkg/db"
	"github.com/prepnest/prepnest-backend/pkg/db/models"
	"github.com/prepnest/prepnest-backend/pkg/enums"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
	"github.com/prepnest/prepnest-backend/pkg/logger"
	"github.com/prepnest/prepnest-backend/pkg/metrics"
	"github.com/prepnest/prepnest-backend/pkg/razorpay"
)

// paiseFactor converts rupee-denominated catalog prices into paise.
var paiseFactor = decimal.NewFromInt(100)

// Gateway is the slice of the payment gateway client the intent flow needs.
type Gateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.GatewayOrder, error)
	Currency() string
}

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the purchase intent operations.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	FindOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
}

// CreateIntentInput captures a capture request after authentication.
type CreateIntentInput struct {
	UserID         uuid.UUID
	SeriesIDs      []uuid.UUID
	IdempotencyKey string
}

// Intent is the client-facing view of a registered order.
type Intent struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	AmountPaise    int64     `json:"amount_paise"`
	Currency       string    `json:"currency"`
	Reused         bool      `json:"reused"`
}

type service struct {
	txRunner TxRunner
	orders   Repository
	catalog  catalog.Repository
	gateway  Gateway
	logg     *logger.Logger
	payments *metrics.PaymentMetrics
	now      func() time.Time
}

// NewService wires the purchase intent service.
func NewService(
	txRunner TxRunner,
	orders Repository,
	catalogRepo catalog.Repository,
	gateway Gateway,
	logg *logger.Logger,
	payments *metrics.PaymentMetrics,
) (Service, error) {
	if txRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		txRunner: txRunner,
		orders:   orders,
		catalog:  catalogRepo,
		gateway:  gateway,
		logg:     logg,
		payments: payments,
		now:      time.Now,
	}, nil
}

// CreateIntent registers a purchase with the payment gateway at most once per
// idempotency key. A replayed key returns the already-registered order
// without touching the gateway again.
func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.SeriesIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one series id is required")
	}
	for _, id := range input.SeriesIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "series id is required")
		}
	}
	if containsDuplicates(input.SeriesIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "series ids must be unique")
	}

	key := DeriveIdempotencyKey(input.IdempotencyKey, input.UserID, input.SeriesIDs, s.now())
	ctx = s.logg.WithField(ctx, "idempotency_key", key)

	if existing, err := s.orders.FindByIdempotencyKey(ctx, key); err == nil {
		s.logg.Info(ctx, "purchase intent replayed")
		return intentFromOrder(existing, true), nil
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	purchasable, err := s.catalog.FindPurchasable(ctx, input.UserID, input.SeriesIDs)
	if err != nil {
		return nil, err
	}
	if len(purchasable) != len(input.SeriesIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "one or more series are unavailable or already owned").
			WithDetails(map[string]any{
				"requested": len(input.SeriesIDs),
				"available": len(purchasable),
			})
	}

	amountPaise := int64(0)
	items := make([]models.OrderItem, 0, len(purchasable))
	for _, series := range purchasable {
		unitPaise := series.Price.Mul(paiseFactor).IntPart()
		amountPaise += unitPaise
		items = append(items, models.OrderItem{
			SeriesID:       series.ID,
			UnitPricePaise: unitPaise,
		})
	}
	if amountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order amount must be positive")
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
		AmountPaise: amountPaise,
		Currency:    s.gateway.Currency(),
		Receipt:     key,
		Notes:       map[string]string{"user_id": input.UserID.String()},
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:         input.UserID,
		GatewayOrderID: gwOrder.ID,
		IdempotencyKey: key,
		AmountPaise:    amountPaise,
		Currency:       gwOrder.Currency,
		Status:         enums.OrderStatusCreated,
		Items:          items,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		// A concurrent request with the same key won the insert race. The
		// gateway order registered above is abandoned; settlement only ever
		// references the stored one.
		if db.IsUniqueViolation(err, "uq_orders_idempotency_key") {
			existing, findErr := s.orders.FindByIdempotencyKey(ctx, key)
			if findErr != nil {
				return nil, findErr
			}
			s.logg.Info(ctx, "purchase intent lost insert race, returning stored order")
			return intentFromOrder(existing, true), nil
		}
		return nil, err
	}

	s.payments.IncIntentCreated()
	ctx = s.logg.WithGatewayOrderID(ctx, order.GatewayOrderID)
	s.logg.Info(ctx, "purchase intent created")
	return intentFromOrder(order, false), nil
}

func (s *service) FindOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	if gatewayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id is required")
	}
	return s.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
}

func intentFromOrder(order *models.Order, reused bool) *Intent {
	return &Intent{
		OrderID:        order.ID,
		GatewayOrderID: order.GatewayOrderID,
		AmountPaise:    order.AmountPaise,
		Currency:       order.Currency,
		Reused:         reused,
	}
}

func containsDuplicates(ids []uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
