package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/repository"
	"github.com/averyong/lingodesk/internal/translate"
)

// TranslateHandler drives the per-project batch translation queue.
type TranslateHandler struct {
	manager   *translate.Manager
	projects  *repository.ProjectRepository
	rows      *repository.RowRepository
	templates *repository.TemplateRepository
	glossary  *repository.GlossaryRepository
}

// NewTranslateHandler creates a new translate handler.
// Parameters:
//   - manager: per-project queue manager.
//   - projects, rows, templates, glossary: repositories backing the job setup.
// Returns:
//   - *TranslateHandler: initialized handler.
func NewTranslateHandler(
	manager *translate.Manager,
	projects *repository.ProjectRepository,
	rows *repository.RowRepository,
	templates *repository.TemplateRepository,
	glossary *repository.GlossaryRepository,
) *TranslateHandler {
	return &TranslateHandler{
		manager:   manager,
		projects:  projects,
		rows:      rows,
		templates: templates,
		glossary:  glossary,
	}
}

type startTranslationRequest struct {
	RowIDs     []string `json:"row_ids"`     // empty means all pending rows
	TemplateID string   `json:"template_id"` // empty means the default template
}

// Start handles POST /api/v1/projects/:id/translate. Rows are marked queued
// before this returns; batches run in the background in submission order.
func (h *TranslateHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project: " + err.Error()})
		return
	}

	var req startTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	var tmpl *domain.PromptTemplate
	if req.TemplateID != "" {
		tmpl, err = h.templates.GetByID(ctx, req.TemplateID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
	} else {
		tmpl, err = h.templates.GetDefault(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load default template: " + err.Error()})
			return
		}
	}

	var rows []domain.TranslationRow
	if len(req.RowIDs) > 0 {
		rows, err = h.rows.ListByIDs(ctx, req.RowIDs)
	} else {
		rows, _, err = h.rows.ListByProject(ctx, projectID, domain.RowStatusPending, 10000, 0)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rows: " + err.Error()})
		return
	}

	// Pin the current glossary so mid-job edits apply to later jobs only.
	maxVersion, err := h.glossary.MaxVersion(ctx)
	if err == nil && maxVersion > project.GlossaryVersion {
		project.GlossaryVersion = maxVersion
		if uerr := h.projects.Update(ctx, project); uerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to pin glossary version: " + uerr.Error()})
			return
		}
	}

	queue := h.manager.ForProject(project)
	if err := queue.Enqueue(ctx, rows, *tmpl); err != nil {
		if errors.Is(err, translate.ErrAPINotConfigured) {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "Translation API key is not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue rows: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"project_id": projectID,
		"enqueued":   len(rows),
		"progress":   queue.Progress(),
	})
}

// Cancel handles POST /api/v1/projects/:id/translate/cancel. Batches that have
// not started are discarded and their rows return to pending; the in-flight
// batch finishes its network call but its result is dropped.
func (h *TranslateHandler) Cancel(c *gin.Context) {
	projectID := c.Param("id")
	queue, ok := h.manager.Get(projectID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"project_id": projectID, "cancelled": false})
		return
	}
	queue.Cancel(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "cancelled": true})
}

// Status handles GET /api/v1/projects/:id/translate/status, returning queue
// progress plus per-status row counts.
func (h *TranslateHandler) Status(c *gin.Context) {
	projectID := c.Param("id")

	counts, err := h.rows.CountByStatus(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count rows: " + err.Error()})
		return
	}

	resp := gin.H{
		"project_id": projectID,
		"running":    false,
		"progress":   translate.Progress{},
		"row_counts": counts,
	}
	if queue, ok := h.manager.Get(projectID); ok {
		resp["running"] = queue.Running()
		resp["progress"] = queue.Progress()
	}
	c.JSON(http.StatusOK, resp)
}
