package enrollment

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEnrollmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps every pooled connection on one database
	// while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	enrollments := `
CREATE TABLE IF NOT EXISTS enrollments (
  user_id TEXT NOT NULL,
  series_id TEXT NOT NULL,
  granted_at DATETIME,
  PRIMARY KEY (user_id, series_id)
);`
	require.NoError(t, db.Exec(enrollments).Error)
	return db
}

func TestGrantIsIdempotent(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	grantor := NewGrantor(db)
	ctx := context.Background()

	userID := uuid.New()
	seriesA, seriesB := uuid.New(), uuid.New()

	require.NoError(t, grantor.Grant(ctx, userID, []uuid.UUID{seriesA, seriesB}))

	// Replaying the same grant, or a grant overlapping existing rows, must
	// neither fail nor duplicate.
	require.NoError(t, grantor.Grant(ctx, userID, []uuid.UUID{seriesA, seriesB}))
	require.NoError(t, grantor.Grant(ctx, userID, []uuid.UUID{seriesB}))

	var count int64
	require.NoError(t, db.Table("enrollments").Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGrantValidation(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	grantor := NewGrantor(db)
	ctx := context.Background()

	assert.Error(t, grantor.Grant(ctx, uuid.Nil, []uuid.UUID{uuid.New()}))
	assert.Error(t, grantor.Grant(ctx, uuid.New(), nil))
	assert.Error(t, grantor.Grant(ctx, uuid.New(), []uuid.UUID{uuid.Nil}))
}

func TestAnyEnrolled(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	grantor := NewGrantor(db)
	ctx := context.Background()

	userID := uuid.New()
	owned := uuid.New()
	require.NoError(t, grantor.Grant(ctx, userID, []uuid.UUID{owned}))

	enrolled, err := grantor.AnyEnrolled(ctx, userID, []uuid.UUID{owned, uuid.New()})
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrolled, err = grantor.AnyEnrolled(ctx, userID, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.False(t, enrolled)

	enrolled, err = grantor.AnyEnrolled(ctx, uuid.Nil, []uuid.UUID{owned})
	require.NoError(t, err)
	assert.False(t, enrolled)
}
