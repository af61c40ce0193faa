package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/prepnest/prepnest-backend/pkg/enums"
)

// PaymentVerification is the immutable settlement record for a gateway order.
// The unique index on GatewayOrderID is the serialization point that keeps
// entitlement grants exactly-once across callback and webhook ingress.
type PaymentVerification struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	GatewayOrderID   string                   `gorm:"column:gateway_order_id;not null;uniqueIndex:uq_payment_verifications_gateway_order_id"`
	GatewayPaymentID *string                  `gorm:"column:gateway_payment_id;uniqueIndex:uq_payment_verifications_gateway_payment_id"`
	ItemIDs          json.RawMessage          `gorm:"column:item_ids;type:jsonb;not null"`
	AmountPaise      int64                    `gorm:"column:amount_paise;not null"`
	Status           enums.VerificationStatus `gorm:"column:status;not null"`
	FailureReason    *string                  `gorm:"column:failure_reason"`
	PaymentMethod    *string                  `gorm:"column:payment_method"`
	ProcessedAt      time.Time                `gorm:"column:processed_at;autoCreateTime"`
}
