package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/uuid"

	"github.com/averyong/lingodesk/internal/config"
	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/importer"
	"github.com/averyong/lingodesk/internal/logger"
	"github.com/averyong/lingodesk/internal/repository"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "lingodesk-import",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	filePath := flag.String("file", "", "Path to xlsx spreadsheet to import")
	projectID := flag.String("project", "", "Existing project ID to import into")
	projectName := flag.String("create", "", "Create a new project with this name and import into it")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" {
		appLogger.Fatal("-file is required")
	}
	if *projectID == "" && *projectName == "" {
		appLogger.Fatal("either -project or -create is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	projectRepo := repository.NewProjectRepository(db)
	rowRepo := repository.NewRowRepository(db)

	ctx := context.Background()

	// Resolve target project
	var project *domain.Project
	if *projectID != "" {
		project, err = projectRepo.GetByID(ctx, *projectID)
		if err != nil {
			appLogger.WithError(err).Fatal("Project not found")
		}
	} else {
		project = &domain.Project{
			ID:              uuid.New().String(),
			Name:            *projectName,
			SourceLanguage:  "en",
			TargetLanguages: domain.StringArray(cfg.Translate.TargetLanguages),
		}
		if err := projectRepo.Create(ctx, project); err != nil {
			appLogger.WithError(err).Fatal("Failed to create project")
		}
		appLogger.WithField("project_id", project.ID).Info("Project created")
	}

	// Parse and import the spreadsheet
	content, err := os.ReadFile(*filePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read spreadsheet")
	}

	parsed, err := importer.ParseExcel(content)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to parse spreadsheet")
	}

	rows, result := importer.BuildRows(project.ID, parsed)
	if len(rows) > 0 {
		if err := rowRepo.CreateBatch(ctx, rows); err != nil {
			appLogger.WithError(err).Fatal("Failed to save rows")
		}
	}

	for _, ie := range result.Errors {
		appLogger.WithFields(logger.Fields{
			"row":   ie.Row,
			"error": ie.Error,
		}).Warn("Row skipped")
	}

	appLogger.WithFields(logger.Fields{
		"project_id": project.ID,
		"imported":   result.Imported,
		"skipped":    result.Skipped,
	}).Info("Import completed")
}
