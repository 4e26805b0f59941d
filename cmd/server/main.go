package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
		logger.Info("database migrations applied")
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable, rate limiting and response cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	m := metrics.New()

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.NotifyEnabled {
		notifier = queue.NewPublisher(cfg.RabbitURL, cfg.NotifyQueue, queue.DialAMQP)
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Queue: cfg.NotifyQueue, LogPath: cfg.NotifyLogPath}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	screenings := repository.NewScreeningRepo(db)
	rooms := repository.NewRoomRepo(db)
	movies := repository.NewMovieRepo(db)
	ledger := repository.NewSeatLedgerRepo(db)
	tickets := repository.NewTicketRepo(db)

	booking := cfg.Booking
	catalogSvc := service.NewCatalogService(screenings, rooms, movies,
		service.WithLocation(booking.Location))
	ledgerSvc := service.NewLedgerService(screenings, ledger, tickets,
		service.WithReadRepairGrace(booking.ReadRepairGrace),
		service.WithLedgerMetrics(m))
	holdSvc := service.NewHoldService(screenings, ledger, tickets,
		service.WithHoldTTL(booking.HoldTTL),
		service.WithHoldMetrics(m))
	purchaseSvc := service.NewPurchaseService(screenings, ledger, tickets,
		service.WithPurchaseNotifier(notifier),
		service.WithPurchaseMetrics(m))
	cancelSvc := service.NewCancellationService(screenings, ledger, tickets,
		service.WithCancelWindow(booking.CancelWindow),
		service.WithCancelLocation(booking.Location),
		service.WithCancelNotifier(notifier),
		service.WithCancelMetrics(m))
	ticketSvc := service.NewTicketQueryService(screenings, tickets)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Prometheus(m))

	router.Register(e, router.Deps{
		Health:    handler.NewHealthHandler(db),
		Public:    handler.NewPublicHandler(catalogSvc, ledgerSvc, holdSvc, cancelSvc, booking.Location),
		Booking:   handler.NewBookingHandler(holdSvc, purchaseSvc, cancelSvc, ticketSvc),
		Admin:     handler.NewAdminHandler(catalogSvc, ticketSvc, cancelSvc),
		JWTSecret: cfg.JWTSecret,
		Gatherer:  prometheus.DefaultGatherer,
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.Duration("hold_ttl", booking.HoldTTL), zap.Duration("cancel_window", booking.CancelWindow),
			zap.String("timezone", booking.Location.String()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", zap.Duration("grace", cfg.ShutdownGrace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
