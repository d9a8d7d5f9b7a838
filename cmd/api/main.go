package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"contractledger/internal/config"
	"contractledger/internal/db"
	"contractledger/internal/httpserver"
	"contractledger/internal/importer"
	"contractledger/internal/lock"
	"contractledger/internal/logging"
	"contractledger/internal/metrics"
	"contractledger/internal/report"
	activityrepo "contractledger/internal/repository/activity"
	customerrepo "contractledger/internal/repository/customer"
	prestationrepo "contractledger/internal/repository/prestation"
	activitysvc "contractledger/internal/service/activity"
	cataloguesvc "contractledger/internal/service/catalogue"
	contractsvc "contractledger/internal/service/contract"
	customersvc "contractledger/internal/service/customer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	locker, closeLocker := newLocker(ctx, cfg, logger)
	defer closeLocker()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	activityRepo := activityrepo.NewPostgres(dbpool, logger)
	prestationRepo := prestationrepo.NewPostgres(dbpool, logger)

	catalogueService := cataloguesvc.New(prestationRepo, logger)
	validator := contractsvc.NewValidator(catalogueService)
	customerService := customersvc.New(customerRepo, validator, locker, logger, customersvc.WithMetrics(m))
	activityService := activitysvc.New(customerRepo, activityRepo, catalogueService, locker, logger, activitysvc.WithMetrics(m))

	generator := report.NewGenerator(customerRepo, activityRepo, catalogueService, logger)
	scheduler := report.NewScheduler(generator, report.NewCSVWriter(cfg.ReportOutputDir, logger), cfg.ReportInterval, m, logger)
	watcher := importer.NewWatcher(cfg.CatalogueInputDir, cfg.CatalogueArchiveDir, prestationRepo, cfg.CataloguePollInterval, m, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CustomerSvc:  customerService,
		ActivitySvc:  activityService,
		CatalogueSvc: catalogueService,
		ReportSvc:    scheduler,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSOrigins:  cfg.CORSAllowOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-process customer locks")
		return lock.NewLocal(), func() {}
	}
	client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("connect to redis", zap.Error(err))
	}
	locker, err := lock.NewRedis(client, cfg.LockTTL, logger)
	if err != nil {
		logger.Fatal("init redis locker", zap.Error(err))
	}
	logger.Info("using redis customer locks", zap.String("addr", cfg.RedisAddr))
	return locker, func() { _ = client.Close() }
}
