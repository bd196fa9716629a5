package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storeorders/internal/notifications"
	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/db"
	"github.com/angelmondragon/storeorders/pkg/i18n"
	"github.com/angelmondragon/storeorders/pkg/instance"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/migrate"
	"github.com/angelmondragon/storeorders/pkg/outbox/idempotency"
	"github.com/angelmondragon/storeorders/pkg/outbox/registry"
	"github.com/angelmondragon/storeorders/pkg/pubsub"
	"github.com/angelmondragon/storeorders/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notifications-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "notifications-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notifications-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	err = pubsubClient.RequireSubscriptions(ctx, cfg.PubSub.NotificationSubscription)
	requireResource(ctx, logg, "notification subscription", err)
	subscription := pubsubClient.NotificationSubscription()

	dedupe, err := idempotency.New(redisClient, notifications.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "consumer dedupe", err)

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repository:   notifications.NewRepository(dbClient.DB()),
		Subscription: subscription,
		Idempotency:  dedupe,
		Decoders:     registry.NewOrderEventDecoders(),
		Logger:       logg,
		Language:     i18n.Match(cfg.App.NotificationLanguage),
	})
	requireResource(ctx, logg, "notification consumer", err)

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	requireResource(ctx, logg, "notifications worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "notifications worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notifications worker failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "notifications worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
