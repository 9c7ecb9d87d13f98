package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ciepi/portal-service/internal/api/http"
	"github.com/ciepi/portal-service/internal/api/http/handlers"
	"github.com/ciepi/portal-service/internal/auth"
	"github.com/ciepi/portal-service/internal/config"
	"github.com/ciepi/portal-service/internal/events"
	"github.com/ciepi/portal-service/internal/lookup"
	"github.com/ciepi/portal-service/internal/mail"
	"github.com/ciepi/portal-service/internal/observability"
	"github.com/ciepi/portal-service/internal/persistence"
	"github.com/ciepi/portal-service/internal/repository"
	"github.com/ciepi/portal-service/internal/service"
	"github.com/ciepi/portal-service/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	tokenRepo := repository.NewVerificationTokenRepository(pool)
	registrantRepo := repository.NewRegistrantRepository(pool)
	capacitacionRepo := repository.NewCapacitacionRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	blogRepo := repository.NewBlogRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	contactRepo := repository.NewContactRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	var notifier mail.Notifier
	if cfg.SMTP.Host != "" {
		notifier = mail.NewSMTPNotifier(cfg.SMTP, logger)
	} else {
		notifier = mail.NewDevNotifier(logger)
	}

	verificationService := service.NewVerificationService(service.VerificationDependencies{
		TokenRepo:        tokenRepo,
		RegistrantRepo:   registrantRepo,
		EnrollmentRepo:   enrollmentRepo,
		CapacitacionRepo: capacitacionRepo,
		Notifier:         notifier,
		Dispatcher:       dispatcher,
		Logger:           logger,
		DefaultTTL:       cfg.Verification.TTL(),
		BaseURL:          cfg.Verification.BaseURL,
	})
	registrationService := service.NewRegistrationService(service.RegistrationDependencies{
		RegistrantRepo: registrantRepo,
		Verification:   verificationService,
		CedulaClient:   lookup.NewCedulaClient(cfg.Lookup),
		Logger:         logger,
	})
	capacitacionService := service.NewCapacitacionService(capacitacionRepo, enrollmentRepo, registrantRepo)
	contentService := service.NewContentService(blogRepo, eventRepo)
	contactService := service.NewContactService(contactRepo, dispatcher)
	authService := service.NewAuthService(cfg.Auth, staffRepo)

	notificationService := service.NewNotificationService(dispatcher, logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)
	rolePolicy := auth.DefaultRolePolicy()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Verification:   handlers.NewVerificationHandler(verificationService),
		Registration:   handlers.NewRegistrationHandler(registrationService),
		Capacitaciones: handlers.NewCapacitacionesHandler(capacitacionService),
		Content:        handlers.NewContentHandler(contentService),
		Contact:        handlers.NewContactHandler(contactService),
		Staff:          handlers.NewStaffHandler(authService),
		AuthMiddleware: authMiddleware,
		RolePolicy:     rolePolicy,
		Redis:          redis,
		MinPollEvery:   cfg.Verification.MinPollInterval(),
		Logger:         logger,
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
