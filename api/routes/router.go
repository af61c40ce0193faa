package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prepnest/prepnest-backend/api/controllers"
	paymentcontrollers "github.com/prepnest/prepnest-backend/api/controllers/payments"
	webhookcontrollers "github.com/prepnest/prepnest-backend/api/controllers/webhooks"
	"github.com/prepnest/prepnest-backend/api/middleware"
	paymentsvc "github.com/prepnest/prepnest-backend/internal/payments"
	"github.com/prepnest/prepnest-backend/internal/settlement"
	razorpaywebhook "github.com/prepnest/prepnest-backend/internal/webhooks/razorpay"
	"github.com/prepnest/prepnest-backend/pkg/config"
	"github.com/prepnest/prepnest-backend/pkg/db"
	"github.com/prepnest/prepnest-backend/pkg/enums"
	"github.com/prepnest/prepnest-backend/pkg/logger"
	"github.com/prepnest/prepnest-backend/pkg/razorpay"
	"github.com/prepnest/prepnest-backend/pkg/redis"
)

type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	Gateway         *razorpay.Client
	PaymentsService paymentsvc.Service
	Settlement      settlement.Service
	WebhookService  *razorpaywebhook.Service
	WebhookGuard    *razorpaywebhook.IdempotencyGuard
	MetricsRegistry *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(params.WebhookService, params.Gateway, params.WebhookGuard, logg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(string(enums.AccountTypeStudent), logg),
		)
		r.Post("/capture", paymentcontrollers.Capture(params.PaymentsService, logg))
		r.Post("/verify", paymentcontrollers.Verify(params.Settlement, logg))
	})

	return r
}
