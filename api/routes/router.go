package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aydinemre/menubot-backend/api/controllers"
	"github.com/aydinemre/menubot-backend/api/middleware"
	"github.com/aydinemre/menubot-backend/internal/agentlock"
	"github.com/aydinemre/menubot-backend/internal/conversation"
	"github.com/aydinemre/menubot-backend/internal/tenants"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache redis.Pinger,
	tenantsRepo *tenants.Repository,
	conversations *conversation.Service,
	locks *agentlock.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Get("/whatsapp", controllers.WhatsAppVerify(cfg.Transport))
		r.Post("/whatsapp", controllers.WhatsAppWebhook(tenantsRepo, conversations, cfg.Transport, logg))
		r.Post("/payments", controllers.PaymentCallback(conversations, logg))
	})

	r.Route("/api/v1/agent", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Route("/conversations/{conversationID}", func(r chi.Router) {
			r.Post("/lock", controllers.AcquireAgentLock(locks, logg))
			r.Post("/lock/refresh", controllers.RefreshAgentLock(locks, logg))
			r.Delete("/lock", controllers.ReleaseAgentLock(locks, logg))
			r.Post("/reply", controllers.SendAgentReply(locks, conversations, logg))
		})
		r.Post("/intents/{intentID}/feedback", controllers.RecordIntentFeedback(conversations, logg))
	})

	return r
}
