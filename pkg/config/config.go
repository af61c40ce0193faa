package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Settlement   SettlementConfig
	SMTP         SMTPConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PREPNEST_APP_ENV" required:"true"`
	Port         string `envconfig:"PREPNEST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PREPNEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PREPNEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PREPNEST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PREPNEST_DB_DSN"`
	Driver string `envconfig:"PREPNEST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PREPNEST_DB_HOST"`
	LegacyPort     int    `envconfig:"PREPNEST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PREPNEST_DB_USER"`
	LegacyPassword string `envconfig:"PREPNEST_DB_PASSWORD"`
	LegacyName     string `envconfig:"PREPNEST_DB_NAME"`
	LegacySSLMode  string `envconfig:"PREPNEST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PREPNEST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PREPNEST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PREPNEST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PREPNEST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PREPNEST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PREPNEST_REDIS_ADDR"`
	Password     string        `envconfig:"PREPNEST_REDIS_PASSWORD"`
	DB           int           `envconfig:"PREPNEST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PREPNEST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PREPNEST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PREPNEST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PREPNEST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PREPNEST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PREPNEST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PREPNEST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PREPNEST_JWT_EXPIRATION_MINUTES" required:"true"`
}

// RazorpayConfig carries credentials for the payment gateway. KeySecret signs
// per-transaction callbacks; WebhookSecret signs webhook bodies. They are
// distinct trust boundaries and must never be conflated.
type RazorpayConfig struct {
	KeyID         string        `envconfig:"PREPNEST_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"PREPNEST_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"PREPNEST_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"PREPNEST_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout       time.Duration `envconfig:"PREPNEST_RAZORPAY_TIMEOUT" default:"10s"`
	Currency      string        `envconfig:"PREPNEST_RAZORPAY_CURRENCY" default:"INR"`
}

type SettlementConfig struct {
	MaxTxAttempts int           `envconfig:"PREPNEST_SETTLEMENT_MAX_TX_ATTEMPTS" default:"3"`
	RetryBackoff  time.Duration `envconfig:"PREPNEST_SETTLEMENT_RETRY_BACKOFF" default:"100ms"`
}

type SMTPConfig struct {
	Host     string `envconfig:"PREPNEST_SMTP_HOST"`
	Port     int    `envconfig:"PREPNEST_SMTP_PORT" default:"587"`
	Username string `envconfig:"PREPNEST_SMTP_USERNAME"`
	Password string `envconfig:"PREPNEST_SMTP_PASSWORD"`
	From     string `envconfig:"PREPNEST_SMTP_FROM_EMAIL"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PREPNEST_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PREPNEST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PREPNEST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic        string `envconfig:"PREPNEST_PUBSUB_PAYMENTS_TOPIC" default:"pn-payment-events"`
	PaymentsSubscription string `envconfig:"PREPNEST_PUBSUB_PAYMENTS_SUBSCRIPTION" default:"pn-payment-events-notifier"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PREPNEST_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PREPNEST_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PREPNEST_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"PREPNEST_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PREPNEST_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
