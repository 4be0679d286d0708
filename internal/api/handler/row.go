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

// RowHandler handles translation row endpoints, including the reviewer
// approve/reject actions.
type RowHandler struct {
	rows *repository.RowRepository
}

// NewRowHandler creates a new row handler.
func NewRowHandler(rows *repository.RowRepository) *RowHandler {
	return &RowHandler{rows: rows}
}

// List handles GET /api/v1/projects/:id/rows with optional status filter and paging.
func (h *RowHandler) List(c *gin.Context) {
	projectID := c.Param("id")
	status := domain.RowStatus(c.Query("status"))

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, total, err := h.rows.ListByProject(c.Request.Context(), projectID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rows: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":   rows,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /api/v1/rows/:id.
func (h *RowHandler) Get(c *gin.Context) {
	row, err := h.rows.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Row not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load row: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

type createRowRequest struct {
	RowKey     string `json:"row_key"`
	SourceText string `json:"source_text" binding:"required"`
}

// Create handles POST /api/v1/projects/:id/rows for manual row entry.
func (h *RowHandler) Create(c *gin.Context) {
	var req createRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	row := &domain.TranslationRow{
		ID:         uuid.New().String(),
		ProjectID:  c.Param("id"),
		RowKey:     req.RowKey,
		SourceText: req.SourceText,
		TargetText: domain.LangMap{},
		Status:     domain.RowStatusPending,
		Origin:     "manual",
		Version:    1,
	}
	if err := h.rows.Create(c.Request.Context(), row); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create row: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, row)
}

type updateRowRequest struct {
	SourceText *string           `json:"source_text"`
	TargetText map[string]string `json:"target_text"`
	Status     *domain.RowStatus `json:"status"`
}

// Update handles PUT /api/v1/rows/:id. A manual edit bumps the row version,
// which supersedes any stale automated translation still in flight.
func (h *RowHandler) Update(c *gin.Context) {
	row, err := h.rows.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Row not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load row: " + err.Error()})
		return
	}

	var req updateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if req.SourceText != nil {
		row.SourceText = *req.SourceText
	}
	if req.TargetText != nil {
		if row.TargetText == nil {
			row.TargetText = domain.LangMap{}
		}
		for lang, text := range req.TargetText {
			row.TargetText[lang] = text
		}
	}
	if req.Status != nil {
		if !validManualStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Status not settable by edit: " + string(*req.Status)})
			return
		}
		row.Status = *req.Status
	}

	if err := h.rows.Update(c.Request.Context(), row); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update row: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

// Approve handles POST /api/v1/rows/:id/approve, moving a settled row to completed.
func (h *RowHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	err := h.rows.SetStatus(c.Request.Context(), id, domain.RowStatusCompleted,
		domain.RowStatusReview, domain.RowStatusError)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Row is not in a reviewable state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.RowStatusCompleted})
}

// Reject handles POST /api/v1/rows/:id/reject, returning a row to pending so
// it can be re-translated or edited.
func (h *RowHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	err := h.rows.SetStatus(c.Request.Context(), id, domain.RowStatusPending,
		domain.RowStatusReview, domain.RowStatusError)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Row is not in a reviewable state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.RowStatusPending})
}

// Delete handles DELETE /api/v1/rows/:id.
func (h *RowHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.rows.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete row: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// validManualStatus limits edits to states a human can set directly. Queue
// lifecycle states are owned by the translation queue.
func validManualStatus(s domain.RowStatus) bool {
	switch s {
	case domain.RowStatusPending, domain.RowStatusReview, domain.RowStatusCompleted:
		return true
	}
	return false
}
