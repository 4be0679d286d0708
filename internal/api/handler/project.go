package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/repository"
)

// ProjectHandler handles project CRUD endpoints.
type ProjectHandler struct {
	projects *repository.ProjectRepository
	rows     *repository.RowRepository
}

// NewProjectHandler creates a new project handler.
// Parameters:
//   - projects: project repository.
//   - rows: row repository for per-status counts.
// Returns:
//   - *ProjectHandler: initialized handler.
func NewProjectHandler(projects *repository.ProjectRepository, rows *repository.RowRepository) *ProjectHandler {
	return &ProjectHandler{projects: projects, rows: rows}
}

type createProjectRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	SourceLanguage  string   `json:"source_language"`
	TargetLanguages []string `json:"target_languages"`
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	project := &domain.Project{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Description:     req.Description,
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: domain.StringArray(req.TargetLanguages),
	}
	if project.SourceLanguage == "" {
		project.SourceLanguage = "en"
	}

	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

// List handles GET /api/v1/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "total": len(projects)})
}

// Get handles GET /api/v1/projects/:id. The response includes per-status row
// counts for the review dashboard.
func (h *ProjectHandler) Get(c *gin.Context) {
	id := c.Param("id")
	project, err := h.projects.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project: " + err.Error()})
		return
	}

	counts, err := h.rows.CountByStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count rows: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project, "row_counts": counts})
}

type updateProjectRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	TargetLanguages []string `json:"target_languages"`
}

// Update handles PUT /api/v1/projects/:id.
func (h *ProjectHandler) Update(c *gin.Context) {
	id := c.Param("id")
	project, err := h.projects.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project: " + err.Error()})
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.TargetLanguages != nil {
		project.TargetLanguages = domain.StringArray(req.TargetLanguages)
	}

	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

// Delete handles DELETE /api/v1/projects/:id. Rows are removed with the project.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
