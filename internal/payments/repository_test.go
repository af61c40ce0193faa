package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/prepnest/prepnest-backend/pkg/db"
	"github.com/prepnest/prepnest-backend/pkg/db/models"
	"github.com/prepnest/prepnest-backend/pkg/enums"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps every pooled connection on one database
	// while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL UNIQUE,
  idempotency_key TEXT NOT NULL UNIQUE,
  amount_paise INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  status TEXT NOT NULL DEFAULT 'created',
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  series_id TEXT NOT NULL,
  unit_price_paise INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func newTestOrder(userID uuid.UUID, gatewayOrderID, key string) *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:             orderID,
		UserID:         userID,
		GatewayOrderID: gatewayOrderID,
		IdempotencyKey: key,
		AmountPaise:    19900,
		Currency:       "INR",
		Status:         enums.OrderStatusCreated,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, SeriesID: uuid.New(), UnitPricePaise: 19900},
		},
	}
}

func TestOrderRepositoryCreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder(uuid.New(), "order_N1", "key-1")
	require.NoError(t, repo.Create(ctx, order))

	byKey, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byKey.ID)
	require.Len(t, byKey.Items, 1)
	assert.Equal(t, int64(19900), byKey.Items[0].UnitPricePaise)

	byGateway, err := repo.FindByGatewayOrderID(ctx, "order_N1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byGateway.ID)
}

func TestOrderRepositoryNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.FindByIdempotencyKey(ctx, "missing")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = repo.FindByGatewayOrderID(ctx, "order_missing")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestOrderRepositoryRejectsDuplicateIdempotencyKey(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder(uuid.New(), "order_N1", "key-1")))

	err := repo.Create(ctx, newTestOrder(uuid.New(), "order_N2", "key-1"))
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, ""))
}

func TestOrderRepositoryMarkStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder(uuid.New(), "order_N1", "key-1")
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, repo.MarkStatus(ctx, order.ID, enums.OrderStatusPaid))

	updated, err := repo.FindByGatewayOrderID(ctx, "order_N1")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, updated.Status)
}
