package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/averyong/lingodesk/internal/api/handler"
	"github.com/averyong/lingodesk/internal/api/middleware"
	"github.com/averyong/lingodesk/internal/config"
)

// Handlers groups the constructed endpoint handlers for router wiring.
type Handlers struct {
	Health       *handler.HealthHandler
	Project      *handler.ProjectHandler
	Row          *handler.RowHandler
	Glossary     *handler.GlossaryHandler
	Template     *handler.TemplateHandler
	Translate    *handler.TranslateHandler
	ImportExport *handler.ImportExportHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h Handlers, cfg *config.ServerConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Health check and metrics
	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Projects
		v1.POST("/projects", h.Project.Create)
		v1.GET("/projects", h.Project.List)
		v1.GET("/projects/:id", h.Project.Get)
		v1.PUT("/projects/:id", h.Project.Update)
		v1.DELETE("/projects/:id", h.Project.Delete)

		// Rows
		v1.GET("/projects/:id/rows", h.Row.List)
		v1.POST("/projects/:id/rows", h.Row.Create)
		v1.GET("/rows/:id", h.Row.Get)
		v1.PUT("/rows/:id", h.Row.Update)
		v1.DELETE("/rows/:id", h.Row.Delete)
		v1.POST("/rows/:id/approve", h.Row.Approve)
		v1.POST("/rows/:id/reject", h.Row.Reject)

		// Glossary
		v1.POST("/glossary", h.Glossary.Create)
		v1.GET("/glossary", h.Glossary.List)
		v1.GET("/glossary/active", h.Glossary.Active)
		v1.GET("/glossary/:id", h.Glossary.Get)
		v1.PUT("/glossary/:id", h.Glossary.Update)
		v1.DELETE("/glossary/:id", h.Glossary.Delete)

		// Prompt templates
		v1.POST("/templates", h.Template.Create)
		v1.GET("/templates", h.Template.List)
		v1.GET("/templates/:id", h.Template.Get)
		v1.PUT("/templates/:id", h.Template.Update)
		v1.DELETE("/templates/:id", h.Template.Delete)
		v1.POST("/templates/:id/default", h.Template.SetDefault)

		// Translation queue
		v1.POST("/projects/:id/translate", h.Translate.Start)
		v1.POST("/projects/:id/translate/cancel", h.Translate.Cancel)
		v1.GET("/projects/:id/translate/status", h.Translate.Status)

		// Import / export
		v1.POST("/projects/:id/import/excel", h.ImportExport.ImportExcel)
		v1.POST("/projects/:id/import/image", h.ImportExport.ImportImage)
		v1.GET("/projects/:id/export/excel", h.ImportExport.ExportExcel)
		v1.GET("/projects/:id/export/json", h.ImportExport.ExportJSON)
		v1.GET("/projects/:id/export/bundle", h.ImportExport.ExportBundle)
	}

	return r
}
