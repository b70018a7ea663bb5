package main

import (
	"context"
	"log"
	"time"

	"talentbridge/internal/config"
	"talentbridge/internal/container"
	apperrors "talentbridge/internal/errors"
	"talentbridge/internal/logger"
	"talentbridge/internal/migration"
	"talentbridge/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	db.SetMaxIdleConns(appConfig.Database.MaxIdleConns)

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, apperrors.Wrap(err, "database migration failed")
	}

	return db, nil
}

// runSchedulerLoop executes scheduler passes on the configured interval until
// the context is cancelled.
func runSchedulerLoop(ctx context.Context, cnt *container.Container) {
	ticker := time.NewTicker(cnt.Config.Scheduler.Interval)
	defer ticker.Stop()

	for {
		if _, err := cnt.Scheduler.Run(ctx); err != nil {
			cnt.Logger.Error("scheduler pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(appConfig.Log.JSON, appConfig.Log.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := initDatabase(appConfig)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	cnt, err := container.New(appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create container", zap.Error(err))
	}
	if err := cnt.InitWithDatabase(db); err != nil {
		zapLogger.Fatal("failed to initialize container", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runSchedulerLoop(ctx, cnt)

	server := ui.NewServer(cnt)
	if err := server.Run(":" + appConfig.Server.Port); err != nil {
		zapLogger.Fatal("server exited", zap.Error(err))
	}
}
