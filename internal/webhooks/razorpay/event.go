package razorpaywebhook

import "encoding/json"

// Event types delivered by the gateway.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// Event is the webhook envelope posted by the gateway.
type Event struct {
	Event   string       `json:"event"`
	Payload EventPayload `json:"payload"`
}

type EventPayload struct {
	Payment PaymentWrapper `json:"payment"`
}

type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

// PaymentEntity is the gateway's payment object inside the webhook payload.
type PaymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	AmountPaise      int64             `json:"amount"`
	Method           string            `json:"method"`
	ErrorDescription string            `json:"error_description"`
	Notes            map[string]string `json:"notes"`
}

// Parse decodes the raw webhook body into the typed envelope.
func Parse(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DedupeKey identifies an event for idempotency purposes. The gateway does
// not send an event id in the body, so the payment id plus event type stands
// in for one.
func (e *Event) DedupeKey() string {
	if e == nil {
		return ""
	}
	return e.Event + ":" + e.Payload.Payment.Entity.ID
}
