package razorpaywebhook

import "testing"

func TestParse(t *testing.T) {
	body := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_Abc123",
					"order_id": "order_Nxy456",
					"amount": 49800,
					"method": "upi",
					"notes": {"user_id": "u-1"}
				}
			}
		}
	}`)

	event, err := Parse(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if event.Event != EventPaymentCaptured {
		t.Fatalf("expected %s, got %s", EventPaymentCaptured, event.Event)
	}
	entity := event.Payload.Payment.Entity
	if entity.ID != "pay_Abc123" {
		t.Fatalf("unexpected payment id %q", entity.ID)
	}
	if entity.OrderID != "order_Nxy456" {
		t.Fatalf("unexpected order id %q", entity.OrderID)
	}
	if entity.AmountPaise != 49800 {
		t.Fatalf("unexpected amount %d", entity.AmountPaise)
	}
	if entity.Method != "upi" {
		t.Fatalf("unexpected method %q", entity.Method)
	}
}

func TestParseRejectsMalformedBody(t *testing.T) {
	if _, err := Parse([]byte(`{"event":`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDedupeKey(t *testing.T) {
	event := &Event{Event: EventPaymentCaptured}
	event.Payload.Payment.Entity.ID = "pay_Abc123"

	if got := event.DedupeKey(); got != "payment.captured:pay_Abc123" {
		t.Fatalf("unexpected dedupe key %q", got)
	}

	failed := &Event{Event: EventPaymentFailed}
	failed.Payload.Payment.Entity.ID = "pay_Abc123"
	if failed.DedupeKey() == event.DedupeKey() {
		t.Fatal("different event types for the same payment must dedupe separately")
	}

	var nilEvent *Event
	if nilEvent.DedupeKey() != "" {
		t.Fatal("nil event must yield an empty key")
	}
}
