package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ai-lifeplan-be/internal/bootstrap"
	"ai-lifeplan-be/internal/config"
	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/internal/server"
	"ai-lifeplan-be/internal/tracer"
	"ai-lifeplan-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Telemetry)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := model.AutoMigrate(gormDB); err != nil {
			log.Panicf("Unable to migrate schema: %v", err)
		}
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	if err != nil {
		log.Panicf("Unable to bootstrap: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})

	g.Go(func() error {
		return srv.Run()
	})

	g.Go(func() error {
		<-gctx.Done()
		sysLogger.Info("SERVER", "Shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// closing the bus ends the consumer loop
		if closeErr := container.Close(); err == nil {
			err = closeErr
		}
		return err
	})

	if err := g.Wait(); err != nil {
		sysLogger.Error("SERVER", "Stopped with error", map[string]interface{}{"error": err.Error()})
	}
}
