package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepnest/prepnest-backend/pkg/db/models"
	"github.com/prepnest/prepnest-backend/pkg/enums"
	"github.com/prepnest/prepnest-backend/pkg/logger"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps every pooled connection on one database
	// while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate
  ON outbox_events (event_type, aggregate_type, aggregate_id);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(NewRepository(db), logg)
}

func settledEvent(aggregateID uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.OutboxEventPaymentSettled,
		AggregateType: enums.AggregateTypeOrder,
		AggregateID:   aggregateID,
		Data:          map[string]string{"gateway_order_id": "order_N1"},
		Version:       1,
	}
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, settledEvent(orderID))
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.Where("aggregate_id = ?", orderID).First(&row).Error)
	assert.Equal(t, enums.OutboxEventPaymentSettled, row.EventType)
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.False(t, envelope.OccurredAt.IsZero())

	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "order_N1", data["gateway_order_id"])
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := newTestService(t, setupOutboxTestDB(t))

	err := svc.Emit(context.Background(), nil, settledEvent(uuid.New()))
	require.Error(t, err)

	err = svc.EmitIfNotExists(context.Background(), nil, settledEvent(uuid.New()))
	require.Error(t, err)
}

func TestEmitIfNotExistsDedupes(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	orderID := uuid.New()

	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(ctx, tx, settledEvent(orderID))
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", orderID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Different event type on the same aggregate is a distinct row.
	failed := settledEvent(orderID)
	failed.EventType = enums.OutboxEventPaymentFailed
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(ctx, tx, failed)
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", orderID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func insertEvent(t *testing.T, db *gorm.DB, repo *Repository, aggregateID uuid.UUID) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.Insert(tx, models.OutboxEvent{
			ID:            id,
			EventType:     enums.OutboxEventPaymentSettled,
			AggregateType: enums.AggregateTypeOrder,
			AggregateID:   aggregateID,
			Payload:       json.RawMessage(`{}`),
		})
	})
	require.NoError(t, err)
	return id
}

func TestFetchUnpublishedSkipsPublishedRows(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	first := insertEvent(t, db, repo, uuid.New())
	insertEvent(t, db, repo, uuid.New())

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublished(first))

	rows, err = repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestMarkFailedTracksAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	id := insertEvent(t, db, repo, uuid.New())

	require.NoError(t, repo.MarkFailed(id, errors.New("publish timeout")))
	require.NoError(t, repo.MarkFailed(id, errors.New("publish timeout")))

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", id).First(&row).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish timeout", *row.LastError)
}
