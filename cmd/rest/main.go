package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"atomics-registration-be/internal/bootstrap"
	"atomics-registration-be/internal/config"
	"atomics-registration-be/internal/server"
	"atomics-registration-be/internal/tracer"
	"atomics-registration-be/pkg/database"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 3. Database
	var gormDB *gorm.DB
	if cfg.Database.Driver != "memory" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection, database.PoolConfig{
			MaxIdle:    cfg.Database.MaxIdle,
			MaxOpen:    cfg.Database.MaxOpen,
			LogQueries: cfg.Database.LogQueries,
		})
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
	}

	// 4. Bootstrap dependencies
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. Background services
	go container.WebSocketHub.Run(ctx)

	log.Println("Background: Starting Consumer Service...")
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}
	if err := container.NotificationService.Start(ctx); err != nil {
		log.Printf("Admin feed worker failed to start: %v", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Panicf("Unable to create scheduler: %v", err)
	}
	if err := container.ReconcileService.Schedule(scheduler, cfg.Payment.ReconcileInterval); err != nil {
		log.Printf("Reconcile sweep not scheduled: %v", err)
	}
	scheduler.Start()

	// 6. Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown: %v", err)
	}
	if err := srv.Shutdown(10 * time.Second); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
