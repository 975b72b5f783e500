package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/commercehq/staff-access-service/internal/api/http"
	"github.com/commercehq/staff-access-service/internal/api/http/handlers"
	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/config"
	"github.com/commercehq/staff-access-service/internal/events"
	"github.com/commercehq/staff-access-service/internal/observability"
	"github.com/commercehq/staff-access-service/internal/persistence"
	"github.com/commercehq/staff-access-service/internal/repository"
	"github.com/commercehq/staff-access-service/internal/service"
	"github.com/commercehq/staff-access-service/internal/worker"
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

	pool := pg.PoolHandle()
	staffRepo := repository.NewStaffRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	rbacRepo := repository.NewRBACRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	sessionCache := repository.NewRedisSessionCache(redis.Client, cfg.Auth.SessionCacheTTL())

	dispatcher := events.NewInMemoryDispatcher()
	auditLogger := service.NewAuditLogger(dispatcher, logger)
	auditWriter := service.NewAuditWriter(activityRepo, logger)
	worker.StartAuditWorker(dispatcher, auditWriter)

	sessionService := service.NewSessionService(*cfg, service.SessionDependencies{
		StaffRepo:   staffRepo,
		SessionRepo: sessionRepo,
		Cache:       sessionCache,
		Audit:       auditLogger,
	})
	accessService := service.NewAccessService(rbacRepo, auditLogger)
	staffService := service.NewStaffService(service.StaffDependencies{
		StaffRepo:    staffRepo,
		RBACRepo:     rbacRepo,
		SessionRepo:  sessionRepo,
		ActivityRepo: activityRepo,
		Cache:        sessionCache,
		Audit:        auditLogger,
	})

	if cfg.Auth.SeedCatalogue {
		if err := accessService.SeedStandardCatalogue(ctx); err != nil {
			logger.Fatal("failed to seed role catalogue", zap.Error(err))
		}
		logger.Info("standard role catalogue installed")
	}

	authMiddleware := auth.NewMiddleware(sessionService)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(sessionService, metrics),
		Staff:          handlers.NewStaffHandler(staffService, sessionService),
		Access:         handlers.NewAccessHandler(accessService),
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
