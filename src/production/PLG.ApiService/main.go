package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/fubenergy/plug.monitor/src/production/PLG.ApiService/controllers"
	"gitlab.com/fubenergy/plug.monitor/src/production/PLG.ApiService/middleware"
	billing "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Billing"
	collector "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Collector"
	container "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Container"
	implementation "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Implementation"
	scheduler "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Scheduler"
	tuya "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Tuya"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewApiContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting dashboard API service")

	config := ctr.GetConfig()

	db, err := ctr.GetMongoDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to MongoDB")
	}

	// Create repositories
	readingRepo := implementation.NewMongoReadingRepository(db)
	scheduleRepo := implementation.NewMongoScheduleRepository(db)
	scheduleLogRepo := implementation.NewMongoScheduleLogRepository(db)
	registry := implementation.NewFileDeviceRegistry(config.Registry.Path)

	// Cloud client and core services
	tuyaClient := tuya.NewClient(&config.Tuya)
	aggregator := billing.NewAggregator(readingRepo, nil)
	executor := scheduler.NewExecutor(
		scheduleRepo,
		scheduleLogRepo,
		tuyaClient,
		logger.WithComponent("scheduler"),
		config.Scheduler.RetryOnFailure,
		nil,
	)
	deviceCollector := collector.New(
		registry,
		readingRepo,
		tuyaClient,
		logger.WithComponent("collector"),
		time.Minute, // interval unused here; only on-demand refresh runs
		nil,
	)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Dashboard reads run the due-check scan first: every page refresh
	// drives the soft scheduler, exactly like the original dashboard.
	dashboard := router.Group("/", middleware.DueCheck(executor))

	// Create controllers and register routes
	deviceController := controllers.NewDeviceController(registry, tuyaClient, deviceCollector, logger)
	billingController := controllers.NewBillingController(aggregator, registry, logger)
	scheduleController := controllers.NewScheduleController(scheduleRepo, registry, executor, logger)
	readingController := controllers.NewReadingController(readingRepo, logger)
	healthController := controllers.NewHealthController()

	deviceController.RegisterRoutes(router, dashboard)
	billingController.RegisterRoutes(dashboard)
	scheduleController.RegisterRoutes(router)
	readingController.RegisterRoutes(dashboard)
	healthController.RegisterRoutes(router)

	port := config.Server.Port

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Dashboard API running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
