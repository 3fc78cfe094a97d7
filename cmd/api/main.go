package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/checkin-service/internal/api/http"
	"github.com/spec-kit/checkin-service/internal/api/http/handlers"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/events"
	"github.com/spec-kit/checkin-service/internal/observability"
	"github.com/spec-kit/checkin-service/internal/persistence"
	"github.com/spec-kit/checkin-service/internal/qr"
	"github.com/spec-kit/checkin-service/internal/repository"
	"github.com/spec-kit/checkin-service/internal/service"
	"github.com/spec-kit/checkin-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	cipher, err := qr.NewCipher(cfg.QR.Secret)
	if err != nil {
		logger.Fatal("failed to init token cipher", zap.Error(err))
	}
	cache := qr.NewCache(qr.NewRedisStore(redis.Client), logger)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	metrics.Subscribe(dispatcher)

	pool := pg.PoolHandle()
	eventRepo := repository.NewEventRepository(pool)
	checkinRepo := repository.NewCheckinRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	qrService := service.NewQRService(service.QRDependencies{
		Cipher:     cipher,
		Cache:      cache,
		Dispatcher: dispatcher,
		Logger:     logger,
	}, service.QROptions{
		BaseURL:           cfg.QR.BaseURL,
		DefaultTTLSeconds: cfg.QR.DefaultTTLSeconds,
		UsedTTLSeconds:    cfg.QR.UsedTTLSeconds,
		ImageSizePixels:   cfg.QR.ImageSizePixels,
	})
	checkinService := service.NewCheckinService(service.CheckinDependencies{
		EventRepo:   eventRepo,
		CheckinRepo: checkinRepo,
		QRService:   qrService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	eventService := service.NewEventService(eventRepo, cfg.Geofence.MaxRadiusMeters)
	authService := service.NewAuthService(*cfg, adminRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), adminRepo)

	cleanup := worker.NewCleanupWorker(eventRepo, qrService, cfg.Worker.CleanupIntervalSeconds, logger)
	cleanup.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, cache),
		Checkin:        handlers.NewCheckinHandler(checkinService),
		Events:         handlers.NewEventsHandler(eventService, checkinService),
		QR:             handlers.NewQRHandler(qrService, eventService),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
