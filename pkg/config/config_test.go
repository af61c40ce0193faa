package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("PREPNEST_APP_ENV", "development")
	t.Setenv("PREPNEST_APP_PORT", "8080")
	t.Setenv("PREPNEST_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PREPNEST_JWT_SECRET", "secret")
	t.Setenv("PREPNEST_JWT_ISSUER", "prepnest")
	t.Setenv("PREPNEST_JWT_EXPIRATION_MINUTES", "15")
}

func TestLoadUsesExplicitDSN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PREPNEST_DB_DSN", "postgres://app:pw@db:5432/prepnest?sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.DSN != "postgres://app:pw@db:5432/prepnest?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
	if !cfg.App.IsDev() {
		t.Fatal("expected development env")
	}
}

func TestLoadBuildsDSNFromLegacyVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PREPNEST_DB_HOST", "db.internal")
	t.Setenv("PREPNEST_DB_PORT", "5433")
	t.Setenv("PREPNEST_DB_USER", "app")
	t.Setenv("PREPNEST_DB_PASSWORD", "p w")
	t.Setenv("PREPNEST_DB_NAME", "prepnest")
	t.Setenv("PREPNEST_DB_SSLMODE", "require")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	dsn := cfg.DB.DSN
	if !strings.HasPrefix(dsn, "postgres://app:") {
		t.Fatalf("unexpected dsn prefix: %q", dsn)
	}
	if !strings.Contains(dsn, "db.internal:5433") {
		t.Fatalf("expected host and port in dsn: %q", dsn)
	}
	if !strings.Contains(dsn, "/prepnest") {
		t.Fatalf("expected db name in dsn: %q", dsn)
	}
	if !strings.Contains(dsn, "sslmode=require") {
		t.Fatalf("expected sslmode in dsn: %q", dsn)
	}
	// The password must be URL-escaped, never embedded raw.
	if strings.Contains(dsn, "p w") {
		t.Fatalf("expected escaped password in dsn: %q", dsn)
	}
}

func TestLoadRequiresDatabaseConfig(t *testing.T) {
	setRequiredEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no dsn and no legacy vars are set")
	} else if !strings.Contains(err.Error(), EnvDBDSN) {
		t.Fatalf("expected %s in error, got %v", EnvDBDSN, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PREPNEST_DB_DSN", "postgres://app:pw@db:5432/prepnest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Razorpay.Currency != "INR" {
		t.Fatalf("expected INR default, got %q", cfg.Razorpay.Currency)
	}
	if cfg.Razorpay.BaseURL != "https://api.razorpay.com" {
		t.Fatalf("unexpected base url %q", cfg.Razorpay.BaseURL)
	}
	if cfg.Settlement.MaxTxAttempts != 3 {
		t.Fatalf("expected 3 tx attempts, got %d", cfg.Settlement.MaxTxAttempts)
	}
	if cfg.PubSub.PaymentsTopic != "pn-payment-events" {
		t.Fatalf("unexpected payments topic %q", cfg.PubSub.PaymentsTopic)
	}
	if cfg.Outbox.BatchSize != 50 {
		t.Fatalf("expected batch size 50, got %d", cfg.Outbox.BatchSize)
	}
}
