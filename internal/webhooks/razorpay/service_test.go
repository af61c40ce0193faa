package razorpaywebhook

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prepnest/prepnest-backend/internal/settlement"
	"github.com/prepnest/prepnest-backend/pkg/logger"
)

type stubSettlement struct {
	captured []settlement.CapturedInput
	failed   []settlement.FailedInput
	err      error
}

func (s *stubSettlement) Verify(ctx context.Context, input settlement.VerifyInput) (*settlement.Result, error) {
	return nil, errors.New("not used by webhooks")
}

func (s *stubSettlement) HandleCaptured(ctx context.Context, input settlement.CapturedInput) error {
	s.captured = append(s.captured, input)
	return s.err
}

func (s *stubSettlement) HandleFailed(ctx context.Context, input settlement.FailedInput) error {
	s.failed = append(s.failed, input)
	return s.err
}

func newWebhookService(t *testing.T, stub *stubSettlement) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Settlement: stub,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func capturedEvent(eventType, orderID, paymentID string) *Event {
	event := &Event{Event: eventType}
	event.Payload.Payment.Entity.ID = paymentID
	event.Payload.Payment.Entity.OrderID = orderID
	event.Payload.Payment.Entity.Method = "upi"
	event.Payload.Payment.Entity.ErrorDescription = "card declined"
	return event
}

func TestHandleEventDispatchesCaptured(t *testing.T) {
	stub := &stubSettlement{}
	svc := newWebhookService(t, stub)

	err := svc.HandleEvent(context.Background(), capturedEvent(EventPaymentCaptured, "order_1", "pay_1"))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(stub.captured) != 1 {
		t.Fatalf("expected one captured dispatch, got %d", len(stub.captured))
	}
	got := stub.captured[0]
	if got.GatewayOrderID != "order_1" || got.GatewayPaymentID != "pay_1" || got.PaymentMethod != "upi" {
		t.Fatalf("unexpected captured input %+v", got)
	}
}

func TestHandleEventDispatchesFailed(t *testing.T) {
	stub := &stubSettlement{}
	svc := newWebhookService(t, stub)

	err := svc.HandleEvent(context.Background(), capturedEvent(EventPaymentFailed, "order_1", "pay_1"))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(stub.failed) != 1 {
		t.Fatalf("expected one failed dispatch, got %d", len(stub.failed))
	}
	if stub.failed[0].FailureReason != "card declined" {
		t.Fatalf("unexpected failure reason %q", stub.failed[0].FailureReason)
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	stub := &stubSettlement{}
	svc := newWebhookService(t, stub)

	err := svc.HandleEvent(context.Background(), capturedEvent("refund.created", "order_1", "pay_1"))
	if err != nil {
		t.Fatalf("unknown event types must ack: %v", err)
	}
	if len(stub.captured) != 0 || len(stub.failed) != 0 {
		t.Fatal("unknown event types must not reach settlement")
	}
}

func TestHandleEventPropagatesSettlementErrors(t *testing.T) {
	stub := &stubSettlement{err: errors.New("db down")}
	svc := newWebhookService(t, stub)

	if err := svc.HandleEvent(context.Background(), capturedEvent(EventPaymentCaptured, "order_1", "pay_1")); err == nil {
		t.Fatal("expected settlement error to propagate")
	}
}

func TestHandleEventRejectsNil(t *testing.T) {
	svc := newWebhookService(t, &stubSettlement{})
	if err := svc.HandleEvent(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}
