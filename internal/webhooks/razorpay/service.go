package razorpaywebhook

import (
	"context"

	"github.com/prepnest/prepnest-backend/internal/settlement"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
	"github.com/prepnest/prepnest-backend/pkg/logger"
	"github.com/prepnest/prepnest-backend/pkg/metrics"
)

type ServiceParams struct {
	Settlement settlement.Service
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics
}

// Service dispatches verified webhook events to the settlement orchestrator.
type Service struct {
	settlement settlement.Service
	logg       *logger.Logger
	payments   *metrics.PaymentMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		settlement: params.Settlement,
		logg:       params.Logger,
		payments:   params.Metrics,
	}, nil
}

// HandleEvent processes one verified webhook event. Unrecognized event types
// ack without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	if s.payments != nil {
		s.payments.IncWebhookEvent(event.Event)
	}

	entity := event.Payload.Payment.Entity
	switch event.Event {
	case EventPaymentCaptured:
		return s.settlement.HandleCaptured(ctx, settlement.CapturedInput{
			GatewayOrderID:   entity.OrderID,
			GatewayPaymentID: entity.ID,
			PaymentMethod:    entity.Method,
		})
	case EventPaymentFailed:
		return s.settlement.HandleFailed(ctx, settlement.FailedInput{
			GatewayOrderID:   entity.OrderID,
			GatewayPaymentID: entity.ID,
			FailureReason:    entity.ErrorDescription,
		})
	default:
		s.logg.Info(ctx, "ignoring unhandled webhook event type")
		return nil
	}
}
