package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storeorders/internal/cron"
	"github.com/angelmondragon/storeorders/internal/notifications"
	"github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/db"
	"github.com/angelmondragon/storeorders/pkg/instance"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/metrics"
	"github.com/angelmondragon/storeorders/pkg/migrate"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	jobs, err := buildJobs(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, serviceName+":"+env, cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
		// a cycle must finish while the lock is still ours
		CycleTimeout: lock.TTL() - lock.TTL()/10,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"lock": lock.Key(), "jobs": len(jobs)}), "starting cron worker")
	return service.Run(ctx)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) ([]cron.Job, error) {
	builders := []struct {
		name  string
		build func() (cron.Job, error)
	}{
		{"division link", func() (cron.Job, error) {
			return cron.NewDivisionLinkJob(cron.DivisionLinkJobParams{
				Logger:     logg,
				Repository: orders.NewRepository(dbClient.DB()),
				BatchSize:  cfg.Cron.DivisionBackfillBatchMax,
			})
		}},
		{"notification cleanup", func() (cron.Job, error) {
			return cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
				Logger:     logg,
				Repository: notifications.NewRepository(dbClient.DB()),
				Retention:  cfg.Cron.NotificationRetention,
			})
		}},
		{"outbox retention", func() (cron.Job, error) {
			return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
				Logger:     logg,
				DB:         dbClient,
				Repository: outbox.NewRepository(dbClient.DB()),
				Retention:  cfg.Cron.OutboxRetention,
			})
		}},
	}

	jobs := make([]cron.Job, 0, len(builders))
	for _, b := range builders {
		job, err := b.build()
		if err != nil {
			return nil, fmt.Errorf("%s job: %w", b.name, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}
