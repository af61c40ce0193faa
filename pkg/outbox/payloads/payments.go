package payloads

import "github.com/google/uuid"

// PaymentSettledEvent is published when a payment is verified and the
// entitlements have been granted.
type PaymentSettledEvent struct {
	OrderID          uuid.UUID   `json:"orderId"`
	UserID           uuid.UUID   `json:"userId"`
	GatewayOrderID   string      `json:"gatewayOrderId"`
	GatewayPaymentID string      `json:"gatewayPaymentId"`
	SeriesIDs        []uuid.UUID `json:"seriesIds"`
	AmountPaise      int64       `json:"amountPaise"`
	SettledVia       string      `json:"settledVia"`
}

// PaymentFailedEvent is published when the gateway reports a failed payment.
type PaymentFailedEvent struct {
	OrderID        uuid.UUID `json:"orderId"`
	UserID         uuid.UUID `json:"userId"`
	GatewayOrderID string    `json:"gatewayOrderId"`
	FailureReason  string    `json:"failureReason,omitempty"`
}
