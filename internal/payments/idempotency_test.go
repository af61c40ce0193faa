package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDeriveIdempotencyKeyReturnsSuppliedKey(t *testing.T) {
	userID := uuid.New()
	seriesIDs := []uuid.UUID{uuid.New()}

	key := DeriveIdempotencyKey("  client-key-1  ", userID, seriesIDs, time.Now())
	if key != "client-key-1" {
		t.Fatalf("expected trimmed supplied key, got %q", key)
	}
}

func TestDeriveIdempotencyKeyIgnoresSeriesOrder(t *testing.T) {
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()
	now := time.Now()

	first := DeriveIdempotencyKey("", userID, []uuid.UUID{a, b}, now)
	second := DeriveIdempotencyKey("", userID, []uuid.UUID{b, a}, now)
	if first != second {
		t.Fatal("expected same key regardless of series order")
	}
}

func TestDeriveIdempotencyKeyBucketsByMinute(t *testing.T) {
	userID := uuid.New()
	seriesIDs := []uuid.UUID{uuid.New()}
	base := time.Date(2026, 3, 14, 10, 30, 5, 0, time.UTC)

	sameMinute := DeriveIdempotencyKey("", userID, seriesIDs, base.Add(40*time.Second))
	if got := DeriveIdempotencyKey("", userID, seriesIDs, base); got != sameMinute {
		t.Fatal("expected retries within a minute to share a key")
	}

	nextMinute := DeriveIdempotencyKey("", userID, seriesIDs, base.Add(time.Minute))
	if nextMinute == sameMinute {
		t.Fatal("expected a fresh key in the next minute")
	}
}

func TestDeriveIdempotencyKeyVariesByUser(t *testing.T) {
	seriesIDs := []uuid.UUID{uuid.New()}
	now := time.Now()

	first := DeriveIdempotencyKey("", uuid.New(), seriesIDs, now)
	second := DeriveIdempotencyKey("", uuid.New(), seriesIDs, now)
	if first == second {
		t.Fatal("expected different users to derive different keys")
	}
}
