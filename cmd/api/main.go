package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/averyong/lingodesk/internal/api"
	"github.com/averyong/lingodesk/internal/api/handler"
	"github.com/averyong/lingodesk/internal/config"
	"github.com/averyong/lingodesk/internal/importer"
	"github.com/averyong/lingodesk/internal/logger"
	"github.com/averyong/lingodesk/internal/metrics"
	"github.com/averyong/lingodesk/internal/repository"
	"github.com/averyong/lingodesk/internal/storage"
	"github.com/averyong/lingodesk/internal/translate"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog := logger.NewDefault()
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Register Prometheus collectors
	metrics.MustRegister()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(db)
	rowRepo := repository.NewRowRepository(db)
	glossaryRepo := repository.NewGlossaryRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	ctx := context.Background()
	if err := templateRepo.Seed(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to seed default template")
	}

	// Initialize object storage (optional; exports stream without it)
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		objectStorage, err = storage.NewStorage(&cfg.Storage)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to initialize storage")
		}
		bucketCtx, cancelBucket := context.WithTimeout(ctx, 10*time.Second)
		if err := objectStorage.EnsureBucket(bucketCtx); err != nil {
			appLog.WithError(err).Fatal("Failed to prepare storage bucket")
		}
		cancelBucket()
	}

	// Initialize translation queue stack
	invoker := translate.NewInvoker(&translate.InvokerConfig{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxAttempts: cfg.Translate.MaxAttempts,
		BackoffBase: time.Duration(cfg.Translate.BackoffBaseMs) * time.Millisecond,
	})
	projector := translate.NewProjector(rowRepo)
	manager := translate.NewManager(invoker, projector, glossaryRepo, cfg.Translate)

	// Initialize OCR service for image imports
	ocrService := importer.NewOCRService(&importer.OCRConfig{
		Model:   cfg.LLM.OCRModel,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	// Setup router
	router := api.SetupRouter(api.Handlers{
		Health:       handler.NewHealthHandler(db),
		Project:      handler.NewProjectHandler(projectRepo, rowRepo),
		Row:          handler.NewRowHandler(rowRepo),
		Glossary:     handler.NewGlossaryHandler(glossaryRepo),
		Template:     handler.NewTemplateHandler(templateRepo),
		Translate:    handler.NewTranslateHandler(manager, projectRepo, rowRepo, templateRepo, glossaryRepo),
		ImportExport: handler.NewImportExportHandler(projectRepo, rowRepo, ocrService, objectStorage),
	}, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLog.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	appLog.Info("Server exited")
}
