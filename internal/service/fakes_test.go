package service_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// insertedRow records one Insert call in arrival order.
type insertedRow struct {
	Entity  domain.EntityType
	ID      uuid.UUID
	OrgID   uuid.UUID
	Columns map[string]any
}

// deletion records one Delete call in arrival order.
type deletion struct {
	Entity domain.EntityType
	IDs    []uuid.UUID
}

// fakeEntityStore is an in-memory EntityStore with per-call failure
// injection.
type fakeEntityStore struct {
	mu sync.Mutex

	Inserted  []insertedRow
	Deleted   []deletion
	Budgets   map[uuid.UUID]map[string]any
	Restored  map[uuid.UUID]map[string]any
	priorByID map[uuid.UUID]map[string]any

	// failInsert aborts an Insert whose columns match; nil means never.
	failInsert func(entity domain.EntityType, columns map[string]any) error
	deleteErr  error
}

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{
		Budgets:   make(map[uuid.UUID]map[string]any),
		Restored:  make(map[uuid.UUID]map[string]any),
		priorByID: make(map[uuid.UUID]map[string]any),
	}
}

func (f *fakeEntityStore) Insert(ctx context.Context, entity domain.EntityType, orgID uuid.UUID, columns map[string]any) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failInsert != nil {
		if err := f.failInsert(entity, columns); err != nil {
			return uuid.Nil, err
		}
	}

	id := uuid.New()
	f.Inserted = append(f.Inserted, insertedRow{Entity: entity, ID: id, OrgID: orgID, Columns: columns})
	return id, nil
}

func (f *fakeEntityStore) UpdateCaseBudget(ctx context.Context, caseID uuid.UUID, columns map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prior := f.priorByID[caseID]
	if prior == nil {
		prior = map[string]any{"budget_amount": 1000.0, "budget_hours": 40.0}
	}
	f.Budgets[caseID] = columns
	return prior, nil
}

func (f *fakeEntityStore) RestoreCaseBudget(ctx context.Context, caseID uuid.UUID, prior map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restored[caseID] = prior
	return nil
}

func (f *fakeEntityStore) Delete(ctx context.Context, entity domain.EntityType, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.Deleted = append(f.Deleted, deletion{Entity: entity, IDs: ids})
	return nil
}

// fakeBatchStore is an in-memory BatchStore.
type fakeBatchStore struct {
	mu sync.Mutex

	Batches map[string]*domain.ImportBatch
	Records []*domain.ImportRecord
	Errors  []*domain.ImportError
	Logs    []*domain.ImportLog

	Committed map[domain.EntityType]map[string]uuid.UUID

	markFlipped int
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{
		Batches:   make(map[string]*domain.ImportBatch),
		Committed: make(map[domain.EntityType]map[string]uuid.UUID),
	}
}

func (f *fakeBatchStore) CreateBatch(ctx context.Context, batch *domain.ImportBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *batch
	f.Batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchStore) UpdateBatch(ctx context.Context, batch *domain.ImportBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Batches[batch.ID]; !ok {
		return fmt.Errorf("batch %s not found", batch.ID)
	}
	copied := *batch
	f.Batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchStore) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.Batches[id]
	if !ok {
		return nil, nil
	}
	copied := *batch
	return &copied, nil
}

func (f *fakeBatchStore) CreateRecord(ctx context.Context, record *domain.ImportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.Records = append(f.Records, &copied)
	return nil
}

func (f *fakeBatchStore) MarkImportedRecordsFailed(ctx context.Context, batchID, reason string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, record := range f.Records {
		if record.BatchID == batchID && record.Status == domain.RecordStatusImported {
			record.Status = domain.RecordStatusFailed
			msg := reason
			record.ErrorMessage = &msg
			count++
		}
	}
	f.markFlipped += count
	return count, nil
}

func (f *fakeBatchStore) CreateError(ctx context.Context, importError *domain.ImportError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *importError
	f.Errors = append(f.Errors, &copied)
	return nil
}

func (f *fakeBatchStore) AppendLog(ctx context.Context, entry *domain.ImportLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.Logs = append(f.Logs, &copied)
	return nil
}

func (f *fakeBatchStore) ListLogs(ctx context.Context, batchID string) ([]domain.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var logs []domain.ImportLog
	for _, entry := range f.Logs {
		if entry.BatchID == batchID {
			logs = append(logs, *entry)
		}
	}
	return logs, nil
}

func (f *fakeBatchStore) CommittedMappings(ctx context.Context, orgID uuid.UUID) (map[domain.EntityType]map[string]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.EntityType]map[string]uuid.UUID, len(f.Committed))
	for entity, byExternal := range f.Committed {
		inner := make(map[string]uuid.UUID, len(byExternal))
		for k, v := range byExternal {
			inner[k] = v
		}
		out[entity] = inner
	}
	return out, nil
}

// events returns the audit event sequence for a batch.
func (f *fakeBatchStore) events(batchID string) []domain.LogEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []domain.LogEvent
	for _, entry := range f.Logs {
		if entry.BatchID == batchID {
			events = append(events, entry.Event)
		}
	}
	return events
}

// fakeUserDirectory serves a fixed email index.
type fakeUserDirectory struct {
	Index map[string]uuid.UUID
}

func (f *fakeUserDirectory) EmailIndex(ctx context.Context, orgID uuid.UUID) (map[string]uuid.UUID, error) {
	return f.Index, nil
}

// fakeMappingStore is an in-memory MappingStore shared by the mapping
// resolver and the stored-config path.
type fakeMappingStore struct {
	mu sync.Mutex

	Values  map[string][]string
	Created []string
	Config  *domain.MappingConfig
}

func newFakeMappingStore() *fakeMappingStore {
	return &fakeMappingStore{Values: make(map[string][]string)}
}

func (f *fakeMappingStore) ListValues(ctx context.Context, orgID uuid.UUID, category string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Values[category]...), nil
}

func (f *fakeMappingStore) CreateValue(ctx context.Context, orgID uuid.UUID, category, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values[category] = append(f.Values[category], value)
	f.Created = append(f.Created, category+"/"+value)
	return nil
}

func (f *fakeMappingStore) GetConfig(ctx context.Context, orgID uuid.UUID, sourceSystem string) (*domain.MappingConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Config, nil
}

func (f *fakeMappingStore) SaveConfig(ctx context.Context, orgID uuid.UUID, config *domain.MappingConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Config = config
	return nil
}
