package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/exporter"
	"github.com/averyong/lingodesk/internal/importer"
	"github.com/averyong/lingodesk/internal/logger"
	"github.com/averyong/lingodesk/internal/repository"
	"github.com/averyong/lingodesk/internal/storage"
)

const (
	maxUploadBytes = 20 << 20 // 20 MB

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

// ImportExportHandler handles spreadsheet/image import and export endpoints.
// Object storage is optional; when absent, images are processed in memory and
// export artifacts are only streamed to the caller.
type ImportExportHandler struct {
	projects *repository.ProjectRepository
	rows     *repository.RowRepository
	ocr      *importer.OCRService
	store    storage.ObjectStorage // nil when storage is disabled
}

// NewImportExportHandler creates a new import/export handler.
func NewImportExportHandler(
	projects *repository.ProjectRepository,
	rows *repository.RowRepository,
	ocr *importer.OCRService,
	store storage.ObjectStorage,
) *ImportExportHandler {
	return &ImportExportHandler{projects: projects, rows: rows, ocr: ocr, store: store}
}

// ImportExcel handles POST /api/v1/projects/:id/import/excel (multipart field "file").
func (h *ImportExportHandler) ImportExcel(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	content, _, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parsed, err := importer.ParseExcel(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse spreadsheet: " + err.Error()})
		return
	}

	rows, result := importer.BuildRows(projectID, parsed)
	if len(rows) > 0 {
		if err := h.rows.CreateBatch(ctx, rows); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rows: " + err.Error()})
			return
		}
	}

	logger.CtxInfo(ctx, "Excel import finished: project=%s, imported=%d, skipped=%d",
		projectID, result.Imported, result.Skipped)
	c.JSON(http.StatusOK, result)
}

// ImportImage handles POST /api/v1/projects/:id/import/image (multipart field
// "file"). The image is OCR'd and each text line becomes a pending row.
func (h *ImportExportHandler) ImportImage(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if h.ocr == nil || !h.ocr.Configured() {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "OCR API key is not configured"})
		return
	}

	content, filename, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format, err := importer.SniffFormat(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Keep the original upload when storage is configured, for review audits.
	var imageURL string
	if h.store != nil {
		key := storage.ImageKey(projectID, fmt.Sprintf("%s-%s", uuid.New().String(), filename))
		if err := h.store.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), "image/"+format); err != nil {
			logger.CtxWarn(ctx, "Failed to archive uploaded image: %v", err)
		} else {
			imageURL = h.store.URL(key)
		}
	}

	text, err := h.ocr.ExtractText(ctx, content, format)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "OCR failed: " + err.Error()})
		return
	}

	keyPrefix := fmt.Sprintf("img-%s", time.Now().UTC().Format("20060102-150405"))
	rows := importer.RowsFromText(projectID, keyPrefix, text)
	if len(rows) > 0 {
		if err := h.rows.CreateBatch(ctx, rows); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rows: " + err.Error()})
			return
		}
	}

	logger.CtxInfo(ctx, "Image import finished: project=%s, rows=%d", projectID, len(rows))
	resp := gin.H{"imported": len(rows), "rows": rows}
	if imageURL != "" {
		resp["image_url"] = imageURL
	}
	c.JSON(http.StatusOK, resp)
}

// ExportExcel handles GET /api/v1/projects/:id/export/excel.
func (h *ImportExportHandler) ExportExcel(c *gin.Context) {
	project, rows, ok := h.loadExport(c)
	if !ok {
		return
	}

	content, err := exporter.WriteExcel(project.Name, rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook: " + err.Error()})
		return
	}

	h.archiveArtifact(c, project.ID, project.Name+".xlsx", xlsxContentType, content)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", project.Name+".xlsx"))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// ExportJSON handles GET /api/v1/projects/:id/export/json, returning the
// per-language WPML documents in one envelope.
func (h *ImportExportHandler) ExportJSON(c *gin.Context) {
	project, rows, ok := h.loadExport(c)
	if !ok {
		return
	}

	docs, err := exporter.WriteWPML(project.Name, project.SourceLanguage, project.TargetLanguages, rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build documents: " + err.Error()})
		return
	}

	envelope := make(map[string]json.RawMessage, len(docs))
	for lang, doc := range docs {
		envelope[lang] = json.RawMessage(doc)
	}
	c.JSON(http.StatusOK, envelope)
}

// ExportBundle handles GET /api/v1/projects/:id/export/bundle.
func (h *ImportExportHandler) ExportBundle(c *gin.Context) {
	project, rows, ok := h.loadExport(c)
	if !ok {
		return
	}

	content, err := exporter.WriteBundle(project.Name, project.SourceLanguage, project.TargetLanguages, rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build bundle: " + err.Error()})
		return
	}

	h.archiveArtifact(c, project.ID, project.Name+".zip", zipContentType, content)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", project.Name+".zip"))
	c.Data(http.StatusOK, zipContentType, content)
}

// loadExport fetches the project and its exportable rows, honoring the
// completed_only query flag.
func (h *ImportExportHandler) loadExport(c *gin.Context) (*domain.Project, []domain.TranslationRow, bool) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return nil, nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project: " + err.Error()})
		return nil, nil, false
	}

	rows, _, err := h.rows.ListByProject(ctx, projectID, "", 100000, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rows: " + err.Error()})
		return nil, nil, false
	}

	if c.DefaultQuery("completed_only", "false") == "true" {
		rows = exporter.CompletedOnly(rows)
	}
	return project, rows, true
}

// archiveArtifact uploads an export artifact to object storage when
// configured and exposes its address via the X-Artifact-URL header, so
// callers can re-fetch the archived copy later.
func (h *ImportExportHandler) archiveArtifact(c *gin.Context, projectID, filename, contentType string, content []byte) {
	if h.store == nil {
		return
	}
	ctx := c.Request.Context()
	key := storage.ExportKey(projectID, fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), filename))
	if err := h.store.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		logger.CtxWarn(ctx, "Failed to archive export artifact: %v", err)
		return
	}
	c.Header("X-Artifact-URL", h.store.URL(key))
}

// readUpload extracts and size-limits a multipart file field.
func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q upload: %w", field, err)
	}
	if fileHeader.Size > maxUploadBytes {
		return nil, "", fmt.Errorf("upload exceeds %d bytes", maxUploadBytes)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(content) > maxUploadBytes {
		return nil, "", fmt.Errorf("upload exceeds %d bytes", maxUploadBytes)
	}
	return content, fileHeader.Filename, nil
}
