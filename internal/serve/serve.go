package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/data"
	"github.com/playvault/marketplace-backend/internal/db"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/notifications"
	"github.com/playvault/marketplace-backend/internal/queryguard"
	"github.com/playvault/marketplace-backend/internal/serve/auth"
	"github.com/playvault/marketplace-backend/internal/services"
)

type Configs struct {
	Port        int
	DatabaseURL string
	LogLevel    logrus.Level

	JWTSigningKey string
	AdminUserIDs  []string

	MaxQueryComplexity int
	MaxQueryDepth      int

	SweepInterval  time.Duration
	StalenessAfter time.Duration

	NotificationWebhookURL string

	AppTracker apptracker.AppTracker
}

type handlerDeps struct {
	DBConnectionPool db.ConnectionPool
	Models           *data.Models
	MetricsService   metrics.MetricsService
	AppTracker       apptracker.AppTracker
	JWTManager       *auth.JWTManager
	AdminUserIDs     []string

	AccountService     services.AccountService
	TransactionService services.TransactionService
	ListingService     services.ListingService

	Dispatcher *notifications.Dispatcher
	Sweeper    *services.ExpirationSweeper
}

func Serve(cfg Configs) error {
	deps, err := initHandlerDeps(cfg)
	if err != nil {
		return fmt.Errorf("setting up handler dependencies: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The sweeper is owned by the serve lifecycle: it starts with the
	// server and stops during graceful shutdown.
	deps.Sweeper.Start(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logrus.Infof("starting marketplace backend server on port %d", cfg.Port)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("running HTTP server: %w", err)
	case sig := <-shutdown:
		logrus.Infof("received %s, shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}

		deps.Sweeper.Stop()
		deps.Dispatcher.Close()
	}
	return nil
}

func initHandlerDeps(cfg Configs) (handlerDeps, error) {
	dbConnectionPool, err := db.OpenDBConnectionPool(cfg.DatabaseURL)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("connecting to the database: %w", err)
	}

	sqlxDB, err := dbConnectionPool.SqlxDB(context.Background())
	if err != nil {
		return handlerDeps{}, fmt.Errorf("getting sqlx db: %w", err)
	}
	metricsService := metrics.NewMetricsService(sqlxDB)

	models, err := data.NewModels(dbConnectionPool, metricsService)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("creating models: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSigningKey, 0)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("creating jwt manager: %w", err)
	}

	sinks := []notifications.Sink{&notifications.LogSink{}}
	if cfg.NotificationWebhookURL != "" {
		sinks = append(sinks, notifications.NewWebhookSink(cfg.NotificationWebhookURL))
	}
	dispatcher := notifications.NewDispatcher(sinks, metricsService)

	accountService, err := services.NewAccountService(models, dispatcher)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("creating account service: %w", err)
	}

	transactionService, err := services.NewTransactionService(models, dispatcher, metricsService)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("creating transaction service: %w", err)
	}

	guard := queryguard.NewGuard(
		queryguard.WithMaxComplexity(cfg.MaxQueryComplexity),
		queryguard.WithMaxDepth(cfg.MaxQueryDepth),
	)
	listingService, err := services.NewListingService(models, guard, metricsService)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("creating listing service: %w", err)
	}

	sweeper, err := services.NewExpirationSweeper(transactionService, cfg.SweepInterval, cfg.StalenessAfter, metricsService)
	if err != nil {
		return handlerDeps{}, fmt.Errorf("creating expiration sweeper: %w", err)
	}

	return handlerDeps{
		DBConnectionPool:   dbConnectionPool,
		Models:             models,
		MetricsService:     metricsService,
		AppTracker:         cfg.AppTracker,
		JWTManager:         jwtManager,
		AdminUserIDs:       cfg.AdminUserIDs,
		AccountService:     accountService,
		TransactionService: transactionService,
		ListingService:     listingService,
		Dispatcher:         dispatcher,
		Sweeper:            sweeper,
	}, nil
}
