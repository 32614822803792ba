package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/chat"
	"github.com/expenseflow/expenseflow/internal/config"
	"github.com/expenseflow/expenseflow/internal/export"
	httpserver "github.com/expenseflow/expenseflow/internal/http"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/service"
	"github.com/expenseflow/expenseflow/internal/storage"
	"github.com/expenseflow/expenseflow/pkg/database"
	"github.com/expenseflow/expenseflow/pkg/utils"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense tracking service",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("chat_enabled", cfg.ChatEnabled()))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	referenceRepo := repository.NewReferenceRepository(db.DB, logger)

	svc := service.NewExpenseService(expenseRepo, referenceRepo, logger)
	fallback := service.NewFallbackProvider()

	defaults := chat.Defaults{
		UserID:     cfg.Chat.DefaultUserID,
		ReviewerID: cfg.Chat.DefaultReviewerID,
	}
	registry := chat.NewRegistry(svc, defaults)
	orchestrator := chat.NewOrchestrator(
		chat.NewClient(cfg.OpenAI),
		registry,
		svc,
		chat.Options{
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			MaxRounds:   cfg.Chat.MaxToolRounds,
			Defaults:    defaults,
		},
		logger,
	)

	receipts, err := storage.NewReceiptStore(cfg.Storage.ReceiptDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize receipt store", zap.Error(err))
	}

	exporter := export.NewExcelExporter(logger)

	handlers := httpserver.NewHandlers(svc, orchestrator, receipts, exporter, fallback, logger)
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
