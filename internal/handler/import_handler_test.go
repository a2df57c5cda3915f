package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubImportService is a hand-written fake for ImportServiceInterface.
type stubImportService struct {
	executeResp *domain.ExecuteImportResponse
	executeErr  error
	dryRunResp  *domain.DryRunResult
	dryRunErr   error
	batch       *domain.ImportBatch
	batchErr    error
	logs        []domain.ImportLog
	logsErr     error

	lastRequest *domain.ExecuteImportRequest
}

func (s *stubImportService) Execute(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.ExecuteImportResponse, error) {
	s.lastRequest = req
	return s.executeResp, s.executeErr
}

func (s *stubImportService) DryRun(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.DryRunResult, error) {
	s.lastRequest = req
	return s.dryRunResp, s.dryRunErr
}

func (s *stubImportService) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	return s.batch, s.batchErr
}

func (s *stubImportService) ListLogs(ctx context.Context, batchID string) ([]domain.ImportLog, error) {
	return s.logs, s.logsErr
}

func executeBody(t *testing.T) []byte {
	t.Helper()
	req := domain.ExecuteImportRequest{
		OrganizationID:   uuid.New(),
		UserID:           uuid.New(),
		SourceSystemName: "legacy_crm",
		Entities: []domain.EntityPayload{
			{
				EntityType: "client",
				Records: []domain.SourceRecord{
					{ExternalRecordID: "C-1", Data: map[string]any{"name": "Acme"}},
				},
			},
		},
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func TestImportHandler_Execute(t *testing.T) {
	t.Run("returns engine response on success", func(t *testing.T) {
		svc := &stubImportService{
			executeResp: &domain.ExecuteImportResponse{
				Success:      true,
				BatchID:      uuid.New().String(),
				SuccessCount: 1,
				ReferenceMap: map[string]map[string]string{"clients": {"C-1": uuid.New().String()}},
			},
		}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.POST("/api/v1/imports/execute", h.Execute)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/execute", bytes.NewReader(executeBody(t)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp domain.ExecuteImportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.SuccessCount)
		require.NotNil(t, svc.lastRequest)
		assert.Equal(t, "legacy_crm", svc.lastRequest.SourceSystemName)
	})

	t.Run("failed batch is still a 200", func(t *testing.T) {
		svc := &stubImportService{
			executeResp: &domain.ExecuteImportResponse{
				Success:           false,
				BatchID:           uuid.New().String(),
				FailedCount:       1,
				RollbackPerformed: true,
				Errors: []domain.ImportErrorDetail{
					{EntityType: "case", ExternalRecordID: "K-9", ErrorCode: domain.ErrCodeDuplicateRecord, ErrorMessage: "duplicate"},
				},
			},
		}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.POST("/api/v1/imports/execute", h.Execute)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/execute", bytes.NewReader(executeBody(t)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp domain.ExecuteImportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.True(t, resp.RollbackPerformed)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, domain.ErrCodeDuplicateRecord, resp.Errors[0].ErrorCode)
	})

	t.Run("request validation failure is a 400", func(t *testing.T) {
		svc := &stubImportService{
			executeErr: validation.Errors{"source_system_name": validation.NewError("validation_required", "cannot be blank")},
		}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.POST("/api/v1/imports/execute", h.Execute)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/execute", bytes.NewReader(executeBody(t)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
		assert.Contains(t, w.Body.String(), "source_system_name")
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		h := NewImportHandler(&stubImportService{}, 0)

		router := gin.New()
		router.POST("/api/v1/imports/execute", h.Execute)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/execute", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("oversized batch is rejected before the engine runs", func(t *testing.T) {
		svc := &stubImportService{}
		h := NewImportHandler(svc, 1)

		body, err := json.Marshal(domain.ExecuteImportRequest{
			OrganizationID:   uuid.New(),
			UserID:           uuid.New(),
			SourceSystemName: "legacy_crm",
			Entities: []domain.EntityPayload{
				{EntityType: "client", Records: []domain.SourceRecord{
					{ExternalRecordID: "C-1", Data: map[string]any{"name": "A"}},
					{ExternalRecordID: "C-2", Data: map[string]any{"name": "B"}},
				}},
			},
		})
		require.NoError(t, err)

		router := gin.New()
		router.POST("/api/v1/imports/execute", h.Execute)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/execute", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "maximum record count")
		assert.Nil(t, svc.lastRequest)
	})

	t.Run("unexpected engine error is a 500", func(t *testing.T) {
		svc := &stubImportService{executeErr: errors.New("pool exhausted")}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.POST("/api/v1/imports/execute", h.Execute)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/execute", bytes.NewReader(executeBody(t)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestImportHandler_DryRun(t *testing.T) {
	t.Run("returns preview", func(t *testing.T) {
		svc := &stubImportService{
			dryRunResp: &domain.DryRunResult{
				RecordsToCreate: 1,
				Errors:          []domain.ImportIssue{},
				Warnings:        []domain.ImportIssue{},
				GeneratedAt:     time.Now(),
			},
		}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.POST("/api/v1/imports/dry-run", h.DryRun)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/dry-run", bytes.NewReader(executeBody(t)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var result domain.DryRunResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.RecordsToCreate)
	})
}

func TestImportHandler_GetBatch(t *testing.T) {
	t.Run("returns batch", func(t *testing.T) {
		id := uuid.New().String()
		now := time.Now()
		svc := &stubImportService{
			batch: &domain.ImportBatch{
				ID:             id,
				OrganizationID: uuid.New(),
				SourceSystem:   "legacy_crm",
				Status:         domain.BatchStatusCompleted,
				TotalRecords:   10,
				ProcessedCount: 10,
				CreatedAt:      now,
				UpdatedAt:      now,
			},
		}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.GET("/api/v1/imports/batches/:id", h.GetBatch)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/batches/"+id, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp BatchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.ID)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, 10, resp.ProcessedCount)
	})

	t.Run("unknown batch is a 404", func(t *testing.T) {
		h := NewImportHandler(&stubImportService{}, 0)

		router := gin.New()
		router.GET("/api/v1/imports/batches/:id", h.GetBatch)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/batches/"+uuid.New().String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-uuid id is a 400", func(t *testing.T) {
		h := NewImportHandler(&stubImportService{}, 0)

		router := gin.New()
		router.GET("/api/v1/imports/batches/:id", h.GetBatch)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/batches/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImportHandler_ListLogs(t *testing.T) {
	t.Run("returns audit timeline", func(t *testing.T) {
		id := uuid.New().String()
		svc := &stubImportService{
			batch: &domain.ImportBatch{ID: id, Status: domain.BatchStatusCompleted},
			logs: []domain.ImportLog{
				{ID: uuid.New().String(), BatchID: id, Event: domain.LogEventStarted, Message: "import started"},
				{ID: uuid.New().String(), BatchID: id, Event: domain.LogEventCompleted, Message: "import completed"},
			},
		}
		h := NewImportHandler(svc, 0)

		router := gin.New()
		router.GET("/api/v1/imports/batches/:id/logs", h.ListLogs)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/batches/"+id+"/logs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "import started")
		assert.Contains(t, w.Body.String(), "import completed")
	})

	t.Run("unknown batch is a 404", func(t *testing.T) {
		h := NewImportHandler(&stubImportService{}, 0)

		router := gin.New()
		router.GET("/api/v1/imports/batches/:id/logs", h.ListLogs)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/batches/"+uuid.New().String()+"/logs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
