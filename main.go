package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mytelmed/config"
	"mytelmed/cron"
	"mytelmed/database"
	archiveRepo "mytelmed/database/repository/archive"
	"mytelmed/database/repository/eventcache"
	subscriptionRepo "mytelmed/database/repository/subscription"
	"mytelmed/handlers"
	"mytelmed/metrics"
	"mytelmed/middleware"
	"mytelmed/routes"
	"mytelmed/services/clients"
	"mytelmed/services/notification"
	"mytelmed/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("main: JWT_SECRET must be set")
	}

	metrics.Register()
	database.InitDB()
	utils.InitEventCache()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	fcmClient, err := utils.NewFCMClient(rootCtx, cfg.FirebaseCredentialsFile)
	if err != nil {
		logger.Fatal("main: FCM unavailable", zap.Error(err))
	}

	// repositories.
	subRepo := subscriptionRepo.NewMongoSubscriptionRepo()
	eventArchive := archiveRepo.NewMongoEventArchiveRepo()
	eventStore := eventcache.NewRedisStore(utils.GetEventCacheClient(), cfg.EventCacheName)

	// portal tabs.
	hub := clients.NewHub(logger.Named("hub"))
	clients.SetAllowedOrigins(cfg.CORSAllowedOrigins)
	go hub.Run(rootCtx)

	// service worker.
	formatter := notification.NewFormatter(notification.FormatDefaults{
		Icon:      cfg.NotificationIcon,
		Badge:     cfg.NotificationBadge,
		TagPrefix: cfg.NotificationTagPrefix,
	}, nil)
	display := notification.NewFCMDisplayer(fcmClient, subRepo, cfg.PortalBaseURL, logger.Named("fcm"))
	tracker := notification.NewEventTracker(eventStore, logger.Named("tracker"), nil)
	router := notification.NewClientRouter(hub, notification.ParseMatchMode(cfg.ClientMatchMode), logger.Named("router"))
	lifecycle := notification.NewEventLifecycle(eventStore, eventArchive, cfg.EventRetention, logger.Named("lifecycle"), nil)

	worker, err := notification.NewDefaultServiceWorker(formatter, display, tracker, router, lifecycle, logger.Named("worker"), cfg.HandlerTimeout)
	if err != nil {
		logger.Fatal("main: failed to build service worker", zap.Error(err))
	}
	if err := worker.Activate(rootCtx); err != nil {
		logger.Warn("main: activation cleanup failed", zap.Error(err))
	}

	// background queue.
	queue := asynq.NewClient(cron.RedisOpt())
	defer queue.Close()
	bgWorker, err := cron.InitNotificationWorker(worker, logger.Named("asynq"))
	if err != nil {
		logger.Fatal("main: failed to start notification worker", zap.Error(err))
	}

	utils.StartHealthMonitor(rootCtx, utils.GetEventCacheClient(), database.MongoClient)

	notificationHandler := handlers.NewNotificationHandler(worker, queue, eventArchive)
	subscriptionHandler := handlers.NewSubscriptionHandler(subRepo)
	clientsHandler := handlers.NewClientsHandler(hub)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		PushHandler: notificationHandler.PushHandler,

		ClickHandler:      notificationHandler.ClickHandler,
		CloseHandler:      notificationHandler.CloseHandler,
		SyncHandler:       notificationHandler.SyncHandler,
		ListEventsHandler: notificationHandler.ListEventsHandler,

		RegisterSubscriptionHandler:   subscriptionHandler.RegisterSubscriptionHandler,
		UnregisterSubscriptionHandler: subscriptionHandler.UnregisterSubscriptionHandler,

		WebSocketHandler: clientsHandler.WebSocketHandler,

		HealthHandler: handlers.HealthHandler,
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(utils.ErrorHandler())
	engine.Use(middleware.RequestLogger(logger.Named("http")))
	engine.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, logger))
	routes.RegisterRoutes(engine, handlerBundle, cfg.CORSAllowedOrigins)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: engine,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HandlerTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	bgWorker.Shutdown()
	if err := worker.Shutdown(ctx); err != nil {
		logger.Warn("main: in-flight notification events abandoned", zap.Error(err))
	}
	stop()
	if err := database.CloseDB(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
