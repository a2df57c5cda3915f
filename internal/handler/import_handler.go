package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/middleware"
	"github.com/emerginginv/trace-aid-sub011/internal/service"
)

// timeFormat renders batch timestamps in API responses.
const timeFormat = time.RFC3339

// ImportHandler handles import-related HTTP requests.
type ImportHandler struct {
	importService service.ImportServiceInterface
	maxRecords    int
}

// NewImportHandler creates a new ImportHandler. maxRecords caps the
// record count of a single request; zero disables the cap.
func NewImportHandler(importService service.ImportServiceInterface, maxRecords int) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		maxRecords:    maxRecords,
	}
}

// BatchResponse represents an import batch in the API response.
type BatchResponse struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id"`
	SourceSystem   string   `json:"source_system"`
	Status         string   `json:"status"`
	TotalRecords   int      `json:"total_records"`
	ProcessedCount int      `json:"processed_count"`
	FailedCount    int      `json:"failed_count"`
	ErrorLog       []string `json:"error_log,omitempty"`
	StartedAt      *string  `json:"started_at,omitempty"`
	CompletedAt    *string  `json:"completed_at,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// toBatchResponse converts a domain.ImportBatch to a BatchResponse.
func toBatchResponse(batch *domain.ImportBatch) BatchResponse {
	response := BatchResponse{
		ID:             batch.ID,
		OrganizationID: batch.OrganizationID.String(),
		SourceSystem:   batch.SourceSystem,
		Status:         string(batch.Status),
		TotalRecords:   batch.TotalRecords,
		ProcessedCount: batch.ProcessedCount,
		FailedCount:    batch.FailedCount,
		ErrorLog:       batch.ErrorLog,
		CreatedAt:      batch.CreatedAt.Format(timeFormat),
		UpdatedAt:      batch.UpdatedAt.Format(timeFormat),
	}
	if batch.StartedAt != nil {
		startedAt := batch.StartedAt.Format(timeFormat)
		response.StartedAt = &startedAt
	}
	if batch.CompletedAt != nil {
		completedAt := batch.CompletedAt.Format(timeFormat)
		response.CompletedAt = &completedAt
	}
	return response
}

// bindRequest decodes and size-checks an import request body. A nil
// return means a response has already been written.
func (h *ImportHandler) bindRequest(c *gin.Context) *domain.ExecuteImportRequest {
	var req domain.ExecuteImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error_code": "VALIDATION_ERROR",
			"error":      "invalid request body: " + err.Error(),
		})
		return nil
	}

	if h.maxRecords > 0 {
		total := 0
		for _, payload := range req.Entities {
			total += len(payload.Records)
		}
		if total > h.maxRecords {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "VALIDATION_ERROR",
				"error":      "request exceeds the maximum record count per batch",
			})
			return nil
		}
	}

	return &req
}

// respondError writes request-level failures. Validation failures are
// the caller's fault (400); anything else is ours (500).
func respondError(c *gin.Context, err error, action string) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error_code": "VALIDATION_ERROR",
			"error":      "request validation failed",
			"details":    verrs,
		})
		return
	}

	log.Printf("[request_id=%s] Failed to %s: %v", middleware.GetRequestID(c), action, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
}

// Execute handles POST /api/v1/imports/execute
func (h *ImportHandler) Execute(c *gin.Context) {
	req := h.bindRequest(c)
	if req == nil {
		return
	}

	resp, err := h.importService.Execute(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "execute import")
		return
	}

	// A failed batch is still a completed engine run; the outcome is
	// in the payload, not the status code.
	c.JSON(http.StatusOK, resp)
}

// DryRun handles POST /api/v1/imports/dry-run
func (h *ImportHandler) DryRun(c *gin.Context) {
	req := h.bindRequest(c)
	if req == nil {
		return
	}

	result, err := h.importService.DryRun(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "run import preview")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBatch handles GET /api/v1/imports/batches/:id
func (h *ImportHandler) GetBatch(c *gin.Context) {
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a valid UUID"})
		return
	}

	batch, err := h.importService.GetBatch(c.Request.Context(), id)
	if err != nil {
		log.Printf("[request_id=%s] Failed to get batch %s: %v", middleware.GetRequestID(c), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve batch"})
		return
	}

	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}

	c.JSON(http.StatusOK, toBatchResponse(batch))
}

// ListLogs handles GET /api/v1/imports/batches/:id/logs
func (h *ImportHandler) ListLogs(c *gin.Context) {
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a valid UUID"})
		return
	}

	batch, err := h.importService.GetBatch(c.Request.Context(), id)
	if err != nil {
		log.Printf("[request_id=%s] Failed to get batch %s: %v", middleware.GetRequestID(c), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve batch"})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}

	logs, err := h.importService.ListLogs(c.Request.Context(), id)
	if err != nil {
		log.Printf("[request_id=%s] Failed to list logs for batch %s: %v", middleware.GetRequestID(c), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve batch logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id": id,
		"logs":     logs,
	})
}
