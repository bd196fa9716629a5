package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storeorders/api/routes"
	"github.com/angelmondragon/storeorders/internal/completion"
	"github.com/angelmondragon/storeorders/internal/delivery"
	"github.com/angelmondragon/storeorders/internal/notifications"
	"github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/internal/splitter"
	"github.com/angelmondragon/storeorders/internal/stores"
	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/db"
	"github.com/angelmondragon/storeorders/pkg/instance"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/metrics"
	"github.com/angelmondragon/storeorders/pkg/migrate"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	storeSvc, err := stores.NewService(stores.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}
	completionSvc, err := completion.NewService(ordersRepo, logg, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create completion service", err)
		os.Exit(1)
	}
	gate, err := delivery.NewGate(ordersRepo, completionSvc, logg, orderMetrics, cfg.Completion.PollInterval)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery gate", err)
		os.Exit(1)
	}
	orderSplitter, err := splitter.New(splitter.Params{
		Repository: ordersRepo,
		Tx:         dbClient,
		Outbox:     outboxSvc,
		Stores:     storeSvc,
		Logger:     logg,
		Metrics:    orderMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create splitter", err)
		os.Exit(1)
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository: ordersRepo,
		Tx:         dbClient,
		Outbox:     outboxSvc,
		Stores:     storeSvc,
		Completion: completionSvc,
		Gate:       gate,
		Splitter:   orderSplitter,
		Logger:     logg,
		AutoSplit:  cfg.FeatureFlags.AutoSplit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersSvc, completionSvc, gate, notificationsSvc,
			promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
