package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prepnest/prepnest-backend/pkg/enums"
)

// Order captures a purchase intent registered with the payment gateway.
// GatewayOrderID and IdempotencyKey are both unique: the first anchors
// settlement, the second dedupes capture requests.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	GatewayOrderID string            `gorm:"column:gateway_order_id;not null;uniqueIndex:uq_orders_gateway_order_id"`
	IdempotencyKey string            `gorm:"column:idempotency_key;not null;uniqueIndex:uq_orders_idempotency_key"`
	AmountPaise    int64             `gorm:"column:amount_paise;not null"`
	Currency       string            `gorm:"column:currency;not null;default:'INR'"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'created'"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots one series inside an order at purchase time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	SeriesID       uuid.UUID `gorm:"column:series_id;type:uuid;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
