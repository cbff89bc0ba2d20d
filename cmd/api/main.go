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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/commerce-core/api/controllers"
	"github.com/angelmondragon/commerce-core/api/routes"
	"github.com/angelmondragon/commerce-core/internal/categories"
	"github.com/angelmondragon/commerce-core/internal/fields"
	"github.com/angelmondragon/commerce-core/internal/orders"
	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/internal/producttypes"
	"github.com/angelmondragon/commerce-core/internal/sites"
	"github.com/angelmondragon/commerce-core/pkg/config"
	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/locks"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
	"github.com/angelmondragon/commerce-core/pkg/migrate"
	"github.com/angelmondragon/commerce-core/pkg/outbox"
	"github.com/angelmondragon/commerce-core/pkg/redis"
	"github.com/angelmondragon/commerce-core/pkg/templates"
	"github.com/angelmondragon/commerce-core/pkg/tracing"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	shutdownTracing := tracing.Init(ctx, logg, cfg.Tracing, cfg.App.Env)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, shutdownTracing(shutdownCtx))
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	pingers := map[string]controllers.Pinger{"database": dbClient, "redis": nil}
	var locker locks.Locker = locks.NoopLocker{}
	var lockKey func(resource, id string) string
	if cfg.Redis.Enabled() {
		var redisClient *redis.Client
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		var redisLocker *locks.RedisLocker
		redisLocker, err = locks.NewRedisLocker(redisClient, cfg.Catalog.LockTTL)
		if err != nil {
			return err
		}
		locker = redisLocker
		lockKey = redisClient.LockKey
		pingers["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; product type saves are serialized per process only")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)
	renderer := templates.ObjectRenderer{}
	categoryRepo := categories.NewRepository(conn)
	siteRepo := sites.NewRepository(conn)
	productRepo := products.NewRepository(conn)

	typeSvc, err := producttypes.NewService(producttypes.ServiceParams{
		Repo:       producttypes.NewRepository(conn),
		Categories: categoryRepo,
		Layouts:    fields.NewRepository(conn),
		Sites:      siteRepo,
		Products:   productRepo,
		Tx:         dbClient,
		Outbox:     publisher,
		Renderer:   renderer,
		Locker:     locker,
		LockKey:    lockKey,
		Metrics:    metrics.NewCatalogMetrics(reg),
		Logger:     logg,
		BatchSize:  cfg.Catalog.CascadeBatchSize,
	})
	if err != nil {
		return err
	}
	productSvc, err := products.NewService(productRepo, dbClient, typeSvc, renderer, logg)
	if err != nil {
		return err
	}
	categorySvc, err := categories.NewService(categoryRepo, dbClient, logg)
	if err != nil {
		return err
	}
	siteSvc, err := sites.NewService(siteRepo, dbClient, logg, typeSvc)
	if err != nil {
		return err
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, publisher, logg, metrics.NewOrderMetrics(reg))
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			Pingers:      pingers,
			Gatherer:     reg,
			ProductTypes: typeSvc,
			Products:     productSvc,
			Categories:   categorySvc,
			Sites:        siteSvc,
			Orders:       orderSvc,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
