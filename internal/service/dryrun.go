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
	"github.com/emerginginv/trace-aid-sub011/internal/validator"
)

// DryRun simulates the full pipeline without persisting anything.
// References to rows outside the batch must already be committed;
// references to earlier records of the same run resolve against
// placeholder ids. Given identical input and unchanged committed state,
// two runs differ only in GeneratedAt and Duration.
func (s *ImportService) DryRun(ctx context.Context, req *domain.ExecuteImportRequest) (*domain.DryRunResult, error) {
	if err := s.validate.ValidateRequest(req); err != nil {
		return nil, err
	}

	grouped, err := s.groupedEntities(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	refs, err := s.loadReferenceState(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	committed, err := s.batches.CommittedMappings(ctx, req.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load committed mappings: %w", err)
	}

	config, err := s.effectiveConfig(ctx, req)
	if err != nil {
		return nil, err
	}
	mapResolver := mapping.NewDryRunResolver(s.mappings, req.OrganizationID, config)

	result := &domain.DryRunResult{
		Errors:               []domain.ImportIssue{},
		Warnings:             []domain.ImportIssue{},
		NormalizationSummary: make(map[string]int),
	}

	for _, entity := range s.catalog.Order() {
		for _, rec := range grouped[entity] {
			preview := s.previewRecord(ctx, entity, rec, refs, committed, mapResolver, req.UserID, result)
			result.Records = append(result.Records, preview)

			switch preview.Action {
			case domain.DryRunActionCreate:
				result.RecordsToCreate++
			case domain.DryRunActionUpdate:
				result.RecordsToUpdate++
			default:
				result.RecordsToSkip++
			}
		}
	}

	result.GeneratedAt = time.Now()
	result.Duration = time.Since(start)

	outcome := "clean"
	if len(result.Errors) > 0 {
		outcome = "with_errors"
	}
	metrics.DryRunsTotal.WithLabelValues(outcome).Inc()

	logger.Default().Info("Dry run completed",
		slog.String("source_system", req.SourceSystemName),
		slog.Int("create", result.RecordsToCreate),
		slog.Int("update", result.RecordsToUpdate),
		slog.Int("skip", result.RecordsToSkip),
		slog.Duration("elapsed", result.Duration.Round(time.Millisecond)))

	return result, nil
}

// previewRecord runs one record through validation, normalization,
// mapping and resolution, collecting every problem instead of aborting.
func (s *ImportService) previewRecord(
	ctx context.Context,
	entity domain.EntityType,
	rec domain.SourceRecord,
	refs *domain.ReferenceMap,
	committed map[domain.EntityType]map[string]uuid.UUID,
	mapResolver *mapping.Resolver,
	defaultActorID uuid.UUID,
	result *domain.DryRunResult,
) domain.RecordPreview {
	preview := domain.RecordPreview{
		EntityType:       string(entity),
		ExternalRecordID: rec.ExternalRecordID,
		Original:         rec.Data,
	}

	var blocking []domain.ImportIssue

	if err := s.validate.ValidateRecord(entity, rec.Data); err != nil {
		validator.AppendValidationErrors(&blocking, entity, rec.ExternalRecordID, err)
	}

	normalized := normalize.Record(rec.Data)
	preview.Changes = normalized.Changes
	for _, change := range normalized.Changes {
		result.NormalizationSummary[change.Rule]++
	}

	fields := normalized.Fields
	for _, mf := range mappedFields[entity] {
		value := stringField(fields, mf.field)
		if value == "" {
			continue
		}
		mapped, err := mapResolver.Resolve(ctx, mf.category, value)
		if err != nil {
			code, _ := classifyRecordError(err)
			blocking = append(blocking, domain.ImportIssue{
				EntityType:       string(entity),
				ExternalRecordID: rec.ExternalRecordID,
				Field:            mf.field,
				Code:             code,
				Message:          err.Error(),
			})
			continue
		}
		fields[mf.field] = mapped.Value
		preview.Mappings = append(preview.Mappings, domain.AppliedMapping{
			Category:      mf.category,
			ExternalValue: value,
			Value:         mapped.Value,
			MatchType:     mapped.MatchType,
			WasCreated:    mapped.WasCreated,
		})
	}

	resolved, warnings, err := ResolveReferences(s.catalog, entity, rec.ExternalRecordID, fields, refs, defaultActorID)
	if err != nil {
		code, _ := classifyRecordError(err)
		blocking = append(blocking, domain.ImportIssue{
			EntityType:       string(entity),
			ExternalRecordID: rec.ExternalRecordID,
			Code:             code,
			Message:          err.Error(),
		})
	} else {
		preview.Normalized = resolved.Columns
	}

	preview.Warnings = warnings
	result.Warnings = append(result.Warnings, warnings...)

	if len(blocking) > 0 {
		preview.Action = domain.DryRunActionSkip
		preview.Errors = blocking
		result.Errors = append(result.Errors, blocking...)
		return preview
	}

	// Viable record: register a placeholder id so later records in this
	// run resolve against it, exactly as execution would. The
	// placeholder is derived from the external id so repeated dry runs
	// produce identical previews.
	if entity != domain.EntityBudget {
		if _, exists := refs.Lookup(entity, rec.ExternalRecordID); !exists {
			placeholder := uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(entity)+"/"+rec.ExternalRecordID))
			refs.Add(entity, rec.ExternalRecordID, placeholder)
		}
	}

	if _, linked := committed[entity][rec.ExternalRecordID]; linked {
		preview.Action = domain.DryRunActionUpdate
	} else {
		preview.Action = domain.DryRunActionCreate
	}
	return preview
}
