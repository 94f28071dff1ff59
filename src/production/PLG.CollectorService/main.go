package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	collector "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Collector"
	container "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Container"
	implementation "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Implementation"
	tuya "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Tuya"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewCollectorContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting collector service")

	config := ctr.GetConfig()

	db, err := ctr.GetMongoDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to MongoDB")
	}

	readingRepo := implementation.NewMongoReadingRepository(db)
	registry := implementation.NewFileDeviceRegistry(config.Registry.Path)
	tuyaClient := tuya.NewClient(&config.Tuya)

	svc := collector.New(
		registry,
		readingRepo,
		tuyaClient,
		logger.WithComponent("collector"),
		config.Collector.Interval,
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down...")
		cancel()
	}()

	svc.Run(ctx)
}
