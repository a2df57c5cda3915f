package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// ImportServiceInterface defines the engine operations the HTTP layer
// depends on. Used for dependency injection and test fakes.
type ImportServiceInterface interface {
	// Execute runs one batch to completion: every record imported, or
	// everything rolled back.
	Execute(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.ExecuteImportResponse, error)
	// DryRun previews a batch without persisting anything.
	DryRun(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.DryRunResult, error)
	// GetBatch retrieves a batch's bookkeeping row.
	GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error)
	// ListLogs returns a batch's audit timeline.
	ListLogs(ctx context.Context, batchID string) ([]domain.ImportLog, error)
}

// MappingConfigServiceInterface manages reusable mapping configs.
type MappingConfigServiceInterface interface {
	GetConfig(ctx context.Context, orgID uuid.UUID, sourceSystem string) (*domain.MappingConfig, error)
	SaveConfig(ctx context.Context, orgID uuid.UUID, config *domain.MappingConfig) error
}
