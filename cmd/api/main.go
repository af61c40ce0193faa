package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prepnest/prepnest-backend/api/routes"
	"github.com/prepnest/prepnest-backend/internal/catalog"
	"github.com/prepnest/prepnest-backend/internal/enrollment"
	"github.com/prepnest/prepnest-backend/internal/payments"
	"github.com/prepnest/prepnest-backend/internal/settlement"
	razorpaywebhook "github.com/prepnest/prepnest-backend/internal/webhooks/razorpay"
	"github.com/prepnest/prepnest-backend/pkg/config"
	"github.com/prepnest/prepnest-backend/pkg/db"
	"github.com/prepnest/prepnest-backend/pkg/logger"
	"github.com/prepnest/prepnest-backend/pkg/metrics"
	"github.com/prepnest/prepnest-backend/pkg/migrate"
	"github.com/prepnest/prepnest-backend/pkg/outbox"
	"github.com/prepnest/prepnest-backend/pkg/razorpay"
	"github.com/prepnest/prepnest-backend/pkg/redis"
)

const webhookIdempotencyScope = "razorpay-webhook"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	ordersRepo := payments.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	verificationRepo := settlement.NewVerificationRepository(dbClient.DB())
	grantor := enrollment.NewGrantor(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	paymentsService, err := payments.NewService(dbClient, ordersRepo, catalogRepo, gateway, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(
		dbClient,
		ordersRepo,
		verificationRepo,
		grantor,
		gateway,
		outboxService,
		logg,
		paymentMetrics,
		cfg.Settlement.MaxTxAttempts,
		cfg.Settlement.RetryBackoff,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookService, err := razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		Settlement: settlementService,
		Logger:     logg,
		Metrics:    paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := razorpaywebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, webhookIdempotencyScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			Gateway:         gateway,
			PaymentsService: paymentsService,
			Settlement:      settlementService,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
			MetricsRegistry: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
