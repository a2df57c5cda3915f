// Package service implements the batch import engine: reference
// resolution, dry-run validation, and atomic execution with
// compensating rollback.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/repository"
	"github.com/emerginginv/trace-aid-sub011/internal/validator"
)

// ImportService coordinates one batch per call. Batches run strictly
// sequentially: the reference map is built incrementally in dependency
// order and every record resolves against the inserts before it.
type ImportService struct {
	entities repository.EntityStore
	batches  repository.BatchStore
	users    repository.UserDirectory
	mappings repository.MappingStore
	validate *validator.Validator
	catalog  *domain.Catalog
}

// NewImportService creates a new ImportService.
func NewImportService(
	entities repository.EntityStore,
	batches repository.BatchStore,
	users repository.UserDirectory,
	mappings repository.MappingStore,
	v *validator.Validator,
	catalog *domain.Catalog,
) *ImportService {
	return &ImportService{
		entities: entities,
		batches:  batches,
		users:    users,
		mappings: mappings,
		validate: v,
		catalog:  catalog,
	}
}

// GetBatch retrieves an import batch by id.
func (s *ImportService) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	return s.batches.GetBatch(ctx, id)
}

// ListLogs returns a batch's audit timeline.
func (s *ImportService) ListLogs(ctx context.Context, batchID string) ([]domain.ImportLog, error) {
	return s.batches.ListLogs(ctx, batchID)
}

// groupedEntities reorders request payloads into catalog dependency
// order, merging multiple payloads of the same canonical type while
// preserving record order.
func (s *ImportService) groupedEntities(req *domain.ExecuteImportRequest) (map[domain.EntityType][]domain.SourceRecord, error) {
	grouped := make(map[domain.EntityType][]domain.SourceRecord)
	for _, payload := range req.Entities {
		entity, ok := domain.CanonicalEntityType(payload.EntityType)
		if !ok {
			return nil, fmt.Errorf("unknown entity type %q", payload.EntityType)
		}
		grouped[entity] = append(grouped[entity], payload.Records...)
	}
	return grouped, nil
}

// loadReferenceState builds the batch's reference map: the user
// directory read once, plus every external id committed by prior
// completed batches.
func (s *ImportService) loadReferenceState(ctx context.Context, orgID uuid.UUID) (*domain.ReferenceMap, error) {
	userIndex, err := s.users.EmailIndex(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load user directory: %w", err)
	}

	refs := domain.NewReferenceMap(userIndex)

	committed, err := s.batches.CommittedMappings(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load committed mappings: %w", err)
	}
	for entity, byExternal := range committed {
		for externalID, internalID := range byExternal {
			refs.Add(entity, externalID, internalID)
		}
	}

	return refs, nil
}

// mappedFields lists the category-valued fields the mapping engine
// rewrites, per entity type.
var mappedFields = map[domain.EntityType][]struct {
	field    string
	category string
}{
	domain.EntityCase:     {{"case_type", "case_type"}},
	domain.EntityUpdate:   {{"update_type", "update_type"}},
	domain.EntityActivity: {{"activity_type", "activity_type"}},
}

func totalRecords(grouped map[domain.EntityType][]domain.SourceRecord) int {
	n := 0
	for _, records := range grouped {
		n += len(records)
	}
	return n
}
