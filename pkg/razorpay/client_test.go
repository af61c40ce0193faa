package razorpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prepnest/prepnest-backend/pkg/config"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
	"github.com/prepnest/prepnest-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := NewClient(context.Background(), config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "key-secret",
		WebhookSecret: "webhook-secret",
		BaseURL:       baseURL,
		Currency:      "INR",
	}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresSecrets(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	cases := []config.RazorpayConfig{
		{KeySecret: "s", WebhookSecret: "w"},
		{KeyID: "k", WebhookSecret: "w"},
		{KeyID: "k", KeySecret: "s"},
	}
	for _, cfg := range cases {
		if _, err := NewClient(context.Background(), cfg, logg); err == nil {
			t.Fatalf("expected error for config %+v", cfg)
		}
	}
}

func TestCreateOrder(t *testing.T) {
	var gotBody map[string]any
	var gotAuthUser, gotAuthPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_N1","amount":49800,"currency":"INR","receipt":"rcpt-1","status":"created"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	order, err := client.CreateOrder(context.Background(), OrderCreateParams{
		AmountPaise: 49800,
		Currency:    "INR",
		Receipt:     "rcpt-1",
		Notes:       map[string]string{"user_id": "u-1"},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.ID != "order_N1" {
		t.Fatalf("expected order_N1, got %q", order.ID)
	}
	if order.AmountPaise != 49800 {
		t.Fatalf("expected amount 49800, got %d", order.AmountPaise)
	}
	if gotAuthUser != "rzp_test_key" || gotAuthPass != "key-secret" {
		t.Fatalf("unexpected basic auth %q:%q", gotAuthUser, gotAuthPass)
	}
	if gotBody["amount"].(float64) != 49800 {
		t.Fatalf("unexpected amount in request body: %v", gotBody["amount"])
	}
	if gotBody["receipt"] != "rcpt-1" {
		t.Fatalf("unexpected receipt in request body: %v", gotBody["receipt"])
	}
}

func TestCreateOrderDefaultsCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["currency"] != "INR" {
			t.Errorf("expected default currency INR, got %v", body["currency"])
		}
		w.Write([]byte(`{"id":"order_N2","amount":100,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.CreateOrder(context.Background(), OrderCreateParams{AmountPaise: 100}); err != nil {
		t.Fatalf("create order: %v", err)
	}
}

func TestCreateOrderMapsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount must be at least INR 1.00"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateOrder(context.Background(), OrderCreateParams{AmountPaise: 0})
	if err == nil {
		t.Fatal("expected gateway error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeValidation, typed.Code())
	}
	if typed.Message() != "amount must be at least INR 1.00" {
		t.Fatalf("expected gateway description, got %q", typed.Message())
	}
}

func TestCreateOrderMapsServerErrorsToDependency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateOrder(context.Background(), OrderCreateParams{AmountPaise: 100})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
