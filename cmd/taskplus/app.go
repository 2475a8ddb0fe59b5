package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"

	adaptermiddleware "github.com/abdirisakgelle/taskplus/internal/adapters/http/middleware"
	adapterlogger "github.com/abdirisakgelle/taskplus/internal/adapters/logger"
	"github.com/abdirisakgelle/taskplus/internal/adapters/metrics"
	"github.com/abdirisakgelle/taskplus/internal/adapters/notifier"
	"github.com/abdirisakgelle/taskplus/internal/adapters/scheduler"
	"github.com/abdirisakgelle/taskplus/internal/application"
	"github.com/abdirisakgelle/taskplus/internal/config"
	"github.com/abdirisakgelle/taskplus/internal/infrastructure/auth"
	"github.com/abdirisakgelle/taskplus/internal/infrastructure/dynamodb"
	httpiface "github.com/abdirisakgelle/taskplus/internal/interfaces/http"
)

// app holds the wired object graph shared by every command.
type app struct {
	cfg        config.Config
	logger     *adapterlogger.SlogLogger
	db         *dynamodb.Client
	metrics    *metrics.Prometheus
	dispatcher *notifier.Dispatcher
	registry   *application.RegistryService
	access     *application.AccessService
	auth       *application.AuthService
	tickets    *application.TicketService
	scheduler  *scheduler.Scheduler
	router     *echo.Echo
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := adapterlogger.NewFromOptions(adapterlogger.Options{
		Level:       cfg.Log.Level,
		Environment: cfg.Environment,
		File:        cfg.Log.File,
	})
	if err := xray.Configure(xray.Config{LogLevel: "error"}); err != nil {
		return nil, fmt.Errorf("configure xray: %w", err)
	}

	db, err := dynamodb.NewClient(ctx, dynamodb.Options{
		Region:    cfg.AWS.Region,
		TableName: cfg.AWS.TableName,
		Endpoint:  cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init dynamodb client: %w", err)
	}
	permRepo := dynamodb.NewPermissionRepository(db)
	roleRepo := dynamodb.NewRoleRepository(db)
	userRepo := dynamodb.NewUserRepository(db)
	employeeRepo := dynamodb.NewEmployeeRepository(db)
	accessRepo := dynamodb.NewUserAccessRepository(db)
	counterRepo := dynamodb.NewCounterRepository(db)
	ticketRepo := dynamodb.NewTicketRepository(db)
	followUpRepo := dynamodb.NewFollowUpRepository(db)
	reviewRepo := dynamodb.NewReviewRepository(db)
	notificationRepo := dynamodb.NewNotificationRepository(db)

	prom := metrics.NewPrometheus()
	dispatcher := notifier.NewDispatcher(notificationRepo, counterRepo, prom, logger, cfg.Dispatcher.Buffer)

	secret, err := tokenSecret(cfg)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	registrySvc := application.NewRegistryService(permRepo, roleRepo)
	accessSvc := application.NewAccessService(accessRepo, userRepo, registrySvc)
	authSvc := application.NewAuthService(userRepo, accessSvc, auth.NewBcryptHasher(0), tokens, logger)
	ticketSvc := application.NewTicketService(application.TicketServiceDeps{
		Tickets:   ticketRepo,
		FollowUps: followUpRepo,
		Users:     userRepo,
		Employees: employeeRepo,
		Counters:  counterRepo,
		Notifier:  dispatcher,
		Metrics:   prom,
		Logger:    logger,
	})
	followUpSvc := application.NewFollowUpService(ticketRepo, followUpRepo, counterRepo, prom)
	reviewSvc := application.NewReviewService(ticketRepo, reviewRepo, counterRepo)
	notificationSvc := application.NewNotificationService(userRepo, notificationRepo)

	var jwtHandler echo.MiddlewareFunc
	if cfg.AuthMode() == adaptermiddleware.ModeJWT {
		jwtHandler = tokens.Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(cfg.AuthMode(), jwtHandler)
	if err != nil {
		return nil, fmt.Errorf("init auth middleware: %w", err)
	}

	router := httpiface.NewRouter(httpiface.Handlers{
		Auth:          httpiface.NewAuthHandler(authSvc),
		Access:        httpiface.NewAccessHandler(registrySvc, accessSvc),
		Tickets:       httpiface.NewTicketsHandler(ticketSvc, accessSvc),
		Support:       httpiface.NewSupportHandler(followUpSvc, reviewSvc),
		Notifications: httpiface.NewNotificationsHandler(notificationSvc),
		Metrics:       prom.Handler(),
	}, httpiface.Middleware{
		Auth:          authMiddleware,
		XRay:          adaptermiddleware.XRayMiddleware("taskplus-http"),
		RequestLogger: adaptermiddleware.RequestLogger(logger),
	}, httpiface.RouterOptions{
		Debug:      cfg.IsDevelopment(),
		Logger:     logger,
		Authorizer: adaptermiddleware.NewAuthorizer(accessSvc, prom, logger),
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		metrics:    prom,
		dispatcher: dispatcher,
		registry:   registrySvc,
		access:     accessSvc,
		auth:       authSvc,
		tickets:    ticketSvc,
		scheduler:  scheduler.New(ticketSvc, logger),
		router:     router,
	}, nil
}

// tokenSecret falls back to a per-process random secret when tokens are
// issued but never verified (auth mode none).
func tokenSecret(cfg config.Config) (string, error) {
	if cfg.AuthMode() == adaptermiddleware.ModeJWT || len(cfg.Auth.JWTSecret) >= 32 {
		return cfg.Auth.JWTSecret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
