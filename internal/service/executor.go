package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/logger"
	"github.com/emerginginv/trace-aid-sub011/internal/mapping"
	"github.com/emerginginv/trace-aid-sub011/internal/metrics"
	"github.com/emerginginv/trace-aid-sub011/internal/normalize"
)

// ledgerEntry tracks one mutation performed by the batch so a failure
// can revert it. Inserts are deleted; the budget case update restores
// the captured prior column values.
type ledgerEntry struct {
	entity domain.EntityType
	id     uuid.UUID
	update bool
	prior  map[string]any
}

// Execute runs one batch to completion in strict dependency order. The
// batch is the unit of atomicity: the first record failure aborts the
// run and reverts every mutation made so far, in reverse order.
func (s *ImportService) Execute(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.ExecuteImportResponse, error) {
	if err := s.validate.ValidateRequest(req); err != nil {
		return nil, err
	}

	grouped, err := s.groupedEntities(req)
	if err != nil {
		return nil, err
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}

	start := time.Now()
	log := logger.WithBatchID(batchID)

	now := time.Now()
	batch := &domain.ImportBatch{
		ID:             batchID,
		OrganizationID: req.OrganizationID,
		SourceSystem:   req.SourceSystemName,
		Status:         domain.BatchStatusPending,
		TotalRecords:   totalRecords(grouped),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	startedAt := time.Now()
	batch.Status = domain.BatchStatusProcessing
	batch.StartedAt = &startedAt
	batch.UpdatedAt = startedAt
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("mark batch processing: %w", err)
	}

	log.Info("Batch started",
		slog.String("source_system", req.SourceSystemName),
		slog.Int("total_records", batch.TotalRecords))
	s.appendLog(ctx, batchID, domain.LogEventStarted, "",
		fmt.Sprintf("import started from %s", req.SourceSystemName),
		map[string]any{"total_records": batch.TotalRecords})

	refs, err := s.loadReferenceState(ctx, req.OrganizationID)
	if err != nil {
		s.abandonBatch(ctx, batch, err)
		return nil, err
	}

	config, err := s.effectiveConfig(ctx, req)
	if err != nil {
		s.abandonBatch(ctx, batch, err)
		return nil, err
	}
	mapResolver := mapping.NewResolver(s.mappings, req.OrganizationID, config)

	var ledger []ledgerEntry
	successCount := 0

	for _, entity := range s.catalog.Order() {
		records := grouped[entity]
		if len(records) == 0 {
			continue
		}

		s.appendLog(ctx, batchID, domain.LogEventEntityStarted, entity,
			fmt.Sprintf("importing %d %s records", len(records), entity),
			map[string]any{"count": len(records)})

		for _, rec := range records {
			resolved, warnings, err := s.prepareRecord(ctx, entity, rec, refs, mapResolver, req.UserID)
			if err == nil {
				err = s.persistRecord(ctx, batch, entity, req.OrganizationID, rec, resolved, &ledger, refs)
			}
			if err != nil {
				return s.failBatch(ctx, batch, entity, rec, err, ledger, successCount, start)
			}

			for _, w := range warnings {
				log.Warn("Record imported with warning",
					slog.String("entity_type", w.EntityType),
					slog.String("external_record_id", w.ExternalRecordID),
					slog.String("detail", w.Message))
			}

			successCount++
			metrics.RecordsProcessed.WithLabelValues(string(entity), "imported").Inc()
		}

		s.appendLog(ctx, batchID, domain.LogEventEntityCompleted, entity,
			fmt.Sprintf("imported %d %s records", len(records), entity),
			map[string]any{"count": len(records)})
	}

	completedAt := time.Now()
	batch.Status = domain.BatchStatusCompleted
	batch.ProcessedCount = successCount
	batch.CompletedAt = &completedAt
	batch.UpdatedAt = completedAt
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		log.Error("Failed to mark batch completed", slog.String("error", err.Error()))
	}

	s.appendLog(ctx, batchID, domain.LogEventCompleted, "",
		fmt.Sprintf("import completed: %d records", successCount),
		map[string]any{"imported": successCount})

	elapsed := time.Since(start)
	metrics.BatchesTotal.WithLabelValues(string(domain.BatchStatusCompleted)).Inc()
	metrics.BatchDuration.Observe(elapsed.Seconds())
	log.Info("Batch completed",
		slog.Int("imported", successCount),
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)))

	return &domain.ExecuteImportResponse{
		Success:      true,
		BatchID:      batchID,
		SuccessCount: successCount,
		Errors:       []domain.ImportErrorDetail{},
		ReferenceMap: refs.Export(),
	}, nil
}

// effectiveConfig prefers the request's inline mapping config, falling
// back to the stored config for the source system.
func (s *ImportService) effectiveConfig(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.MappingConfig, error) {
	if req.MappingConfig != nil {
		return req.MappingConfig, nil
	}
	config, err := s.mappings.GetConfig(ctx, req.OrganizationID, req.SourceSystemName)
	if err != nil {
		return nil, fmt.Errorf("load mapping config: %w", err)
	}
	return config, nil
}

// prepareRecord runs the read-only half of the pipeline: structural
// validation, normalization, type mapping, reference resolution.
func (s *ImportService) prepareRecord(
	ctx context.Context,
	entity domain.EntityType,
	rec domain.SourceRecord,
	refs *domain.ReferenceMap,
	mapResolver *mapping.Resolver,
	defaultActorID uuid.UUID,
) (*domain.ResolvedRecord, []domain.ImportIssue, error) {
	if err := s.validate.ValidateRecord(entity, rec.Data); err != nil {
		return nil, nil, err
	}

	normalized := normalize.Record(rec.Data)

	fields := normalized.Fields
	for _, mf := range mappedFields[entity] {
		value := stringField(fields, mf.field)
		if value == "" {
			continue
		}
		result, err := mapResolver.Resolve(ctx, mf.category, value)
		if err != nil {
			return nil, nil, err
		}
		fields[mf.field] = result.Value
	}

	return ResolveReferences(s.catalog, entity, rec.ExternalRecordID, fields, refs, defaultActorID)
}

// persistRecord applies one resolved record to the store and records
// the mutation in the ledger and the reference map.
func (s *ImportService) persistRecord(
	ctx context.Context,
	batch *domain.ImportBatch,
	entity domain.EntityType,
	orgID uuid.UUID,
	rec domain.SourceRecord,
	resolved *domain.ResolvedRecord,
	ledger *[]ledgerEntry,
	refs *domain.ReferenceMap,
) error {
	var internalID uuid.UUID

	if entity == domain.EntityBudget {
		caseID := resolved.CaseID()
		prior, err := s.entities.UpdateCaseBudget(ctx, caseID, resolved.Columns)
		if err != nil {
			return err
		}
		*ledger = append(*ledger, ledgerEntry{entity: entity, id: caseID, update: true, prior: prior})
		internalID = caseID
	} else {
		id, err := s.entities.Insert(ctx, entity, orgID, resolved.Columns)
		if err != nil {
			return err
		}
		*ledger = append(*ledger, ledgerEntry{entity: entity, id: id})
		refs.Add(entity, rec.ExternalRecordID, id)
		internalID = id
	}

	now := time.Now()
	return s.batches.CreateRecord(ctx, &domain.ImportRecord{
		ID:               uuid.New().String(),
		BatchID:          batch.ID,
		EntityType:       entity,
		ExternalRecordID: rec.ExternalRecordID,
		SourceData:       rec.Raw(),
		InternalID:       &internalID,
		Status:           domain.RecordStatusImported,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// failBatch handles the first record failure: it writes the failing
// record and structured error, reverts the ledger, and finalizes the
// batch. Processing never continues past the first failure.
func (s *ImportService) failBatch(
	ctx context.Context,
	batch *domain.ImportBatch,
	entity domain.EntityType,
	rec domain.SourceRecord,
	cause error,
	ledger []ledgerEntry,
	successCount int,
	start time.Time,
) (*domain.ExecuteImportResponse, error) {
	log := logger.WithBatchID(batch.ID)
	code, details := classifyRecordError(cause)
	message := cause.Error()

	log.Error("Batch failed",
		slog.String("entity_type", string(entity)),
		slog.String("external_record_id", rec.ExternalRecordID),
		slog.String("error_code", string(code)),
		slog.String("error", message))

	now := time.Now()
	if err := s.batches.CreateRecord(ctx, &domain.ImportRecord{
		ID:               uuid.New().String(),
		BatchID:          batch.ID,
		EntityType:       entity,
		ExternalRecordID: rec.ExternalRecordID,
		SourceData:       rec.Raw(),
		Status:           domain.RecordStatusFailed,
		ErrorMessage:     &message,
		CreatedAt:        now,
		UpdatedAt:        now,
	}); err != nil {
		log.Error("Failed to write failing import record", slog.String("error", err.Error()))
	}

	if err := s.batches.CreateError(ctx, &domain.ImportError{
		ID:               uuid.New().String(),
		BatchID:          batch.ID,
		EntityType:       entity,
		ExternalRecordID: rec.ExternalRecordID,
		Code:             code,
		Message:          message,
		Details:          details,
		CreatedAt:        now,
	}); err != nil {
		log.Error("Failed to write import error", slog.String("error", err.Error()))
	}

	s.appendLog(ctx, batch.ID, domain.LogEventFailed, entity,
		fmt.Sprintf("import failed on %s %q: %s", entity, rec.ExternalRecordID, message),
		map[string]any{"error_code": string(code)})
	metrics.RecordsProcessed.WithLabelValues(string(entity), "failed").Inc()

	rollbackPerformed := s.rollback(ctx, batch, ledger)

	completedAt := time.Now()
	if rollbackPerformed {
		batch.Status = domain.BatchStatusRolledBack
	} else {
		batch.Status = domain.BatchStatusFailed
		batch.ErrorLog = append(batch.ErrorLog,
			fmt.Sprintf("%s: rollback incomplete, residual rows need manual reconciliation", domain.ErrCodeRollbackFailed))
	}
	batch.ProcessedCount = successCount
	batch.FailedCount = 1
	batch.ErrorLog = append(batch.ErrorLog, message)
	batch.CompletedAt = &completedAt
	batch.UpdatedAt = completedAt
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		log.Error("Failed to finalize batch", slog.String("error", err.Error()))
	}

	metrics.BatchesTotal.WithLabelValues(string(batch.Status)).Inc()
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	return &domain.ExecuteImportResponse{
		Success:     false,
		BatchID:     batch.ID,
		FailedCount: 1,
		Errors: []domain.ImportErrorDetail{{
			EntityType:       string(entity),
			ExternalRecordID: rec.ExternalRecordID,
			ErrorCode:        code,
			ErrorMessage:     message,
			ErrorDetails:     details,
		}},
		ReferenceMap:      domain.NewReferenceMap(nil).Export(),
		RollbackPerformed: rollbackPerformed,
	}, nil
}

// rollback reverts the ledger in strict reverse dependency order,
// grouped by entity table. A failing delete is logged and skipped; the
// caller is told the rollback was incomplete and residual rows are left
// for manual reconciliation.
func (s *ImportService) rollback(ctx context.Context, batch *domain.ImportBatch, ledger []ledgerEntry) bool {
	log := logger.WithBatchID(batch.ID)
	ok := true

	order := s.catalog.Order()
	for i := len(order) - 1; i >= 0; i-- {
		entity := order[i]

		var ids []uuid.UUID
		for _, entry := range ledger {
			if entry.entity != entity {
				continue
			}
			if entry.update {
				if err := s.entities.RestoreCaseBudget(ctx, entry.id, entry.prior); err != nil {
					log.Error("Rollback failed to restore case budget",
						slog.String("case_id", entry.id.String()),
						slog.String("error", err.Error()))
					ok = false
				}
				continue
			}
			ids = append(ids, entry.id)
		}

		if len(ids) > 0 {
			if err := s.entities.Delete(ctx, entity, ids); err != nil {
				log.Error("Rollback failed to delete rows",
					slog.String("entity_type", string(entity)),
					slog.Int("count", len(ids)),
					slog.String("error", err.Error()))
				ok = false
			}
		}
	}

	if _, err := s.batches.MarkImportedRecordsFailed(ctx, batch.ID, "rolled back"); err != nil {
		log.Error("Rollback failed to update import records", slog.String("error", err.Error()))
		ok = false
	}

	detail := map[string]any{"reverted": len(ledger), "complete": ok}
	if !ok {
		detail["error_code"] = string(domain.ErrCodeRollbackFailed)
	}
	s.appendLog(ctx, batch.ID, domain.LogEventRolledBack, "",
		fmt.Sprintf("rolled back %d mutations", len(ledger)), detail)

	if len(ledger) > 0 {
		metrics.RollbacksTotal.Inc()
	}

	return ok
}

// abandonBatch finalizes a batch that failed before any record was
// processed (reference state or config could not be loaded).
func (s *ImportService) abandonBatch(ctx context.Context, batch *domain.ImportBatch, cause error) {
	log := logger.WithBatchID(batch.ID)
	log.Error("Batch abandoned before processing", slog.String("error", cause.Error()))

	now := time.Now()
	batch.Status = domain.BatchStatusFailed
	batch.ErrorLog = append(batch.ErrorLog, cause.Error())
	batch.CompletedAt = &now
	batch.UpdatedAt = now
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		log.Error("Failed to finalize abandoned batch", slog.String("error", err.Error()))
	}

	s.appendLog(ctx, batch.ID, domain.LogEventFailed, "", cause.Error(), nil)
	metrics.BatchesTotal.WithLabelValues(string(domain.BatchStatusFailed)).Inc()
}

// appendLog writes one audit event. Audit write failures are logged and
// swallowed; they must not abort the batch themselves.
func (s *ImportService) appendLog(ctx context.Context, batchID string, event domain.LogEvent, entity domain.EntityType, message string, detail map[string]any) {
	entry := &domain.ImportLog{
		ID:         uuid.New().String(),
		BatchID:    batchID,
		Event:      event,
		EntityType: entity,
		Message:    message,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
	if err := s.batches.AppendLog(ctx, entry); err != nil {
		logger.WithBatchID(batchID).Error("Failed to append audit log",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
	}
}
