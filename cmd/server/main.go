package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Marcelixoo/b-ro-buddy/internal/analyzer"
	"github.com/Marcelixoo/b-ro-buddy/internal/chat"
	"github.com/Marcelixoo/b-ro-buddy/internal/config"
	"github.com/Marcelixoo/b-ro-buddy/internal/db"
	"github.com/Marcelixoo/b-ro-buddy/internal/extractor"
	"github.com/Marcelixoo/b-ro-buddy/internal/llm"
	"github.com/Marcelixoo/b-ro-buddy/internal/repository"
	"github.com/Marcelixoo/b-ro-buddy/internal/router"
	"github.com/Marcelixoo/b-ro-buddy/internal/services"
	"github.com/Marcelixoo/b-ro-buddy/internal/storage"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseFile)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseFile); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// File store for uploaded originals
	store, err := storage.NewS3Storage(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", "error", err)
	}

	// Pipeline: extractor (optional OCR), model gateway, analyzer, chat
	var ocr extractor.OCREngine
	if cfg.OCREnabled {
		ocr = extractor.NewTesseractEngine(cfg.OCRLanguages)
	}
	ext := extractor.New(ocr, logger)

	gateway := llm.NewGateway(cfg, logger)
	if !gateway.Configured() {
		logger.Warn("No LLM credentials configured, analysis and chat run in degraded mode",
			"provider", cfg.LLMProvider)
	}

	model := cfg.OpenAIModel
	if cfg.LLMProvider == config.ProviderBedrock {
		model = cfg.BedrockModelID
	}

	docRepo := repository.NewRepository(database)
	docService := services.NewService(
		docRepo,
		store,
		ext,
		analyzer.New(gateway, logger),
		chat.New(gateway, logger),
		model,
		logger,
	)

	// Setup HTTP router
	handler := router.NewRouter(docService, cfg.CORSOrigins, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
