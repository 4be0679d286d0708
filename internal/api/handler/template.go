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

// TemplateHandler handles prompt template endpoints.
type TemplateHandler struct {
	templates *repository.TemplateRepository
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(templates *repository.TemplateRepository) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

type templateRequest struct {
	Name       string `json:"name" binding:"required"`
	PromptText string `json:"prompt_text" binding:"required"`
}

// Create handles POST /api/v1/templates.
func (h *TemplateHandler) Create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tmpl := &domain.PromptTemplate{
		ID:         uuid.New().String(),
		Name:       req.Name,
		PromptText: req.PromptText,
	}
	if err := h.templates.Create(c.Request.Context(), tmpl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// List handles GET /api/v1/templates.
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates, "total": len(templates)})
}

// Get handles GET /api/v1/templates/:id.
func (h *TemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.templates.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// Update handles PUT /api/v1/templates/:id.
func (h *TemplateHandler) Update(c *gin.Context) {
	tmpl, err := h.templates.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template: " + err.Error()})
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tmpl.Name = req.Name
	tmpl.PromptText = req.PromptText

	if err := h.templates.Update(c.Request.Context(), tmpl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// SetDefault handles POST /api/v1/templates/:id/default.
func (h *TemplateHandler) SetDefault(c *gin.Context) {
	id := c.Param("id")
	if err := h.templates.SetDefault(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set default template: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_default": true})
}

// Delete handles DELETE /api/v1/templates/:id.
func (h *TemplateHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	tmpl, err := h.templates.GetByID(c.Request.Context(), id)
	if err == nil && tmpl.IsDefault {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete the default template"})
		return
	}
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
