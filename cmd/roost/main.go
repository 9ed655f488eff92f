package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/roosthq/roost/internal/app"
	"github.com/roosthq/roost/internal/bookings"
	"github.com/roosthq/roost/internal/calendar"
	"github.com/roosthq/roost/internal/lifecycle"
	"github.com/roosthq/roost/internal/observability"
	"github.com/roosthq/roost/internal/platform/cache"
	"github.com/roosthq/roost/internal/platform/db"
	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
	"github.com/roosthq/roost/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()

	auditLogger := shared.NewAuditLogger(pool)
	cal := calendar.New(logger, redisClient, cfg.BankHolidayFeedURL, cfg.BankHolidayDivision, cfg.BankHolidayCacheTTL)

	premisesRepo := premises.NewRepository(pool)
	premisesService := premises.NewService(premisesRepo)
	premisesHandler := premises.NewHandler(logger, premisesService)

	bookingsRepo := bookings.NewRepository(pool)
	bookingsService := bookings.NewService(bookingsRepo, premisesRepo)
	bookingsHandler := bookings.NewHandler(logger, bookingsService)

	notifyClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := notifyClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	lifecycleStore := lifecycle.NewStore(pool)
	lifecycleService := lifecycle.NewService(logger, lifecycleStore, bookingsRepo, cal, notifyClient).
		WithAudit(auditLogger).
		WithMetrics(observability.NewLifecycleMetrics(metrics.Registerer())).
		WithBounds(cfg.ArchiveMaxPastDays, cfg.ArchiveMaxFutureMonths)
	lifecycleHandler := lifecycle.NewHandler(logger, lifecycleService)

	jobHandler := jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		PremisesHandler:  premisesHandler,
		BookingsHandler:  bookingsHandler,
		LifecycleHandler: lifecycleHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
