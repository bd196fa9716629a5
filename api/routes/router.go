package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storeorders/api/controllers"
	ordercontrollers "github.com/angelmondragon/storeorders/api/controllers/orders"
	"github.com/angelmondragon/storeorders/api/middleware"
	"github.com/angelmondragon/storeorders/internal/notifications"
	"github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/db"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	completionReader ordercontrollers.CompletionReader,
	deliveryGate ordercontrollers.DeliveryEvaluator,
	notificationsService notifications.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.SecureHeaders(cfg.App.IsProd()),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Language(),
	)

	var idempotencyStore middleware.IdempotencyStore
	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerIP, cfg.RateLimit.Window, logg))
		orderKeyed := middleware.Idempotent(idempotencyStore, middleware.OrderIdempotencyTTL, logg)
		keyed := middleware.Idempotent(idempotencyStore, middleware.IdempotencyTTL, logg)

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleCustomer), orderKeyed).
				Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleStore))
				r.Use(middleware.StoreContext(logg))
				r.Get("/originals/{ref}/completion", ordercontrollers.Completion(completionReader, logg))
				r.Get("/originals/{ref}/divisions", ordercontrollers.Divisions(completionReader, logg))
				r.Get("/{orderId}/delivery-gate", ordercontrollers.DeliveryGate(deliveryGate, logg))
			})

			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleCustomer), orderKeyed).
				Post("/{orderId}/customer-reject", ordercontrollers.CustomerReject(ordersSvc, logg))
		})

		r.Route("/store/orders/{orderId}", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleStore, enums.ActorRoleAdmin))
			r.Use(middleware.StoreContext(logg))
			r.Use(orderKeyed)
			r.Post("/respond", ordercontrollers.Respond(ordersSvc, logg))
			r.Post("/deliver", ordercontrollers.Deliver(ordersSvc, logg))
			r.Post("/return", ordercontrollers.Return(ordersSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.With(keyed).Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.With(keyed).Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
		r.Use(middleware.RateLimit(cfg.RateLimit.SplitPerIP, cfg.RateLimit.Window, logg))
		r.Use(middleware.Idempotent(idempotencyStore, middleware.IdempotencyTTL, logg))

		r.Post("/orders/{orderId}/split", ordercontrollers.Split(ordersSvc, logg))
		r.Post("/orders/{orderId}/assign", ordercontrollers.Assign(ordersSvc, logg))
	})

	return r
}
