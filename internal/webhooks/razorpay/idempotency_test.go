package razorpaywebhook

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryStore struct {
	values map[string]string
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestCheckAndMarkFlagsReplays(t *testing.T) {
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, "razorpay-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "payment.captured:pay_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be flagged as a replay")
	}

	seen, err = guard.CheckAndMark(ctx, "payment.captured:pay_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if !seen {
		t.Fatal("second delivery must be flagged as a replay")
	}
}

func TestDeleteReleasesMark(t *testing.T) {
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, "razorpay-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	if _, err := guard.CheckAndMark(ctx, "payment.captured:pay_1"); err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if err := guard.Delete(ctx, "payment.captured:pay_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seen, err := guard.CheckAndMark(ctx, "payment.captured:pay_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if seen {
		t.Fatal("a released mark must allow redelivery")
	}
}

func TestCheckAndMarkPropagatesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")

	guard, err := NewIdempotencyGuard(store, time.Hour, "razorpay-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), "payment.captured:pay_1"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), -time.Second, "scope"); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}
}
