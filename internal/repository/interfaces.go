package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// EntityStore persists the business rows the engine imports. Every
// table access goes through the entity catalog, keyed by the closed
// EntityType enum.
type EntityStore interface {
	// Insert creates one row and returns its generated id.
	Insert(ctx context.Context, entity domain.EntityType, orgID uuid.UUID, columns map[string]any) (uuid.UUID, error)
	// UpdateCaseBudget applies budget columns to an existing case row
	// and returns the prior column values for compensation.
	UpdateCaseBudget(ctx context.Context, caseID uuid.UUID, columns map[string]any) (map[string]any, error)
	// RestoreCaseBudget writes previously captured budget columns back.
	RestoreCaseBudget(ctx context.Context, caseID uuid.UUID, prior map[string]any) error
	// Delete removes rows by id from one entity's table.
	Delete(ctx context.Context, entity domain.EntityType, ids []uuid.UUID) error
}

// BatchStore persists the engine's bookkeeping: batches, per-record
// outcomes, structured errors, and the append-only audit log.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *domain.ImportBatch) error
	UpdateBatch(ctx context.Context, batch *domain.ImportBatch) error
	GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error)

	CreateRecord(ctx context.Context, record *domain.ImportRecord) error
	// MarkImportedRecordsFailed flips every imported record of a batch
	// to failed with the given reason; returns how many were flipped.
	MarkImportedRecordsFailed(ctx context.Context, batchID, reason string) (int, error)

	CreateError(ctx context.Context, importError *domain.ImportError) error

	AppendLog(ctx context.Context, entry *domain.ImportLog) error
	ListLogs(ctx context.Context, batchID string) ([]domain.ImportLog, error)

	// CommittedMappings returns every external id already linked to an
	// internal id by a prior completed batch of this organization.
	CommittedMappings(ctx context.Context, orgID uuid.UUID) (map[domain.EntityType]map[string]uuid.UUID, error)
}

// UserDirectory is the collaborator resolving author/assignee emails.
type UserDirectory interface {
	EmailIndex(ctx context.Context, orgID uuid.UUID) (map[string]uuid.UUID, error)
}

// MappingStore persists picklist values and reusable mapping configs.
type MappingStore interface {
	ListValues(ctx context.Context, orgID uuid.UUID, category string) ([]string, error)
	CreateValue(ctx context.Context, orgID uuid.UUID, category, value string) error

	GetConfig(ctx context.Context, orgID uuid.UUID, sourceSystem string) (*domain.MappingConfig, error)
	SaveConfig(ctx context.Context, orgID uuid.UUID, config *domain.MappingConfig) error
}
