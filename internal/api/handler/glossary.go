package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/repository"
)

// GlossaryHandler handles glossary term endpoints.
type GlossaryHandler struct {
	glossary *repository.GlossaryRepository
}

// NewGlossaryHandler creates a new glossary handler.
func NewGlossaryHandler(glossary *repository.GlossaryRepository) *GlossaryHandler {
	return &GlossaryHandler{glossary: glossary}
}

type termRequest struct {
	SourceTerm     string            `json:"source_term" binding:"required"`
	Translations   map[string]string `json:"translations"`
	Category       string            `json:"category"`
	DoNotTranslate bool              `json:"do_not_translate"`
}

// Create handles POST /api/v1/glossary.
func (h *GlossaryHandler) Create(c *gin.Context) {
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	maxVersion, err := h.glossary.MaxVersion(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read glossary version: " + err.Error()})
		return
	}

	term := &domain.GlossaryTerm{
		ID:             uuid.New().String(),
		SourceTerm:     req.SourceTerm,
		Translations:   domain.LangMap(req.Translations),
		Category:       req.Category,
		DoNotTranslate: req.DoNotTranslate,
		Version:        maxVersion + 1,
	}
	if err := h.glossary.Create(c.Request.Context(), term); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create term: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, term)
}

// List handles GET /api/v1/glossary with an optional category filter.
func (h *GlossaryHandler) List(c *gin.Context) {
	terms, err := h.glossary.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list terms: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"terms": terms, "total": len(terms)})
}

// Active handles GET /api/v1/glossary/active, returning the versioned
// snapshot the queue reads. version=0 (or absent) means all current terms.
func (h *GlossaryHandler) Active(c *gin.Context) {
	version, _ := strconv.Atoi(c.DefaultQuery("version", "0"))
	terms, err := h.glossary.ActiveTerms(c.Request.Context(), version)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load snapshot: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version, "terms": terms, "total": len(terms)})
}

// Get handles GET /api/v1/glossary/:id.
func (h *GlossaryHandler) Get(c *gin.Context) {
	term, err := h.glossary.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Term not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load term: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, term)
}

// Update handles PUT /api/v1/glossary/:id. Edits take effect for jobs started
// after the change; a running job keeps its snapshot.
func (h *GlossaryHandler) Update(c *gin.Context) {
	term, err := h.glossary.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Term not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load term: " + err.Error()})
		return
	}

	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	term.SourceTerm = req.SourceTerm
	term.Translations = domain.LangMap(req.Translations)
	term.Category = req.Category
	term.DoNotTranslate = req.DoNotTranslate

	if err := h.glossary.Update(c.Request.Context(), term); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update term: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, term)
}

// Delete handles DELETE /api/v1/glossary/:id.
func (h *GlossaryHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.glossary.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete term: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
