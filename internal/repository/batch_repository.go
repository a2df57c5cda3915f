package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// PostgresBatchStore implements BatchStore using PostgreSQL.
type PostgresBatchStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBatchStore creates a new PostgresBatchStore.
func NewPostgresBatchStore(pool *pgxpool.Pool) *PostgresBatchStore {
	return &PostgresBatchStore{pool: pool}
}

// CreateBatch creates a new import batch row.
func (r *PostgresBatchStore) CreateBatch(ctx context.Context, batch *domain.ImportBatch) error {
	errorLog, err := json.Marshal(batch.ErrorLog)
	if err != nil {
		return fmt.Errorf("marshal error log: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO import_batches (id, organization_id, source_system, status,
			total_records, processed_count, failed_count, error_log,
			started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, batch.ID, batch.OrganizationID, batch.SourceSystem, batch.Status,
		batch.TotalRecords, batch.ProcessedCount, batch.FailedCount, errorLog,
		batch.StartedAt, batch.CompletedAt, batch.CreatedAt, batch.UpdatedAt)

	if err != nil {
		return classifyError("insert import batch", err)
	}
	return nil
}

// UpdateBatch updates an existing import batch.
func (r *PostgresBatchStore) UpdateBatch(ctx context.Context, batch *domain.ImportBatch) error {
	errorLog, err := json.Marshal(batch.ErrorLog)
	if err != nil {
		return fmt.Errorf("marshal error log: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE import_batches
		SET status = $2, total_records = $3, processed_count = $4,
			failed_count = $5, error_log = $6, started_at = $7,
			completed_at = $8, updated_at = $9
		WHERE id = $1
	`, batch.ID, batch.Status, batch.TotalRecords, batch.ProcessedCount,
		batch.FailedCount, errorLog, batch.StartedAt, batch.CompletedAt, batch.UpdatedAt)

	if err != nil {
		return classifyError("update import batch", err)
	}
	return nil
}

// GetBatch retrieves an import batch by id. Returns (nil, nil) when the
// batch does not exist.
func (r *PostgresBatchStore) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	var errorLog []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, source_system, status, total_records,
			processed_count, failed_count, error_log, started_at, completed_at,
			created_at, updated_at
		FROM import_batches
		WHERE id = $1
	`, id).Scan(&batch.ID, &batch.OrganizationID, &batch.SourceSystem, &batch.Status,
		&batch.TotalRecords, &batch.ProcessedCount, &batch.FailedCount, &errorLog,
		&batch.StartedAt, &batch.CompletedAt, &batch.CreatedAt, &batch.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import batch: %w", err)
	}

	if errorLog != nil {
		if err := json.Unmarshal(errorLog, &batch.ErrorLog); err != nil {
			return nil, fmt.Errorf("unmarshal error log: %w", err)
		}
	}

	return &batch, nil
}

// CreateRecord writes one import record outcome.
func (r *PostgresBatchStore) CreateRecord(ctx context.Context, record *domain.ImportRecord) error {
	sourceData, err := json.Marshal(record.SourceData)
	if err != nil {
		return fmt.Errorf("marshal source data: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO import_records (id, batch_id, entity_type, external_record_id,
			source_data, internal_id, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, record.ID, record.BatchID, record.EntityType, record.ExternalRecordID,
		sourceData, record.InternalID, record.Status, record.ErrorMessage,
		record.CreatedAt, record.UpdatedAt)

	if err != nil {
		return classifyError("insert import record", err)
	}
	return nil
}

// MarkImportedRecordsFailed flips every imported record of a batch to
// failed with the given reason. The records themselves are never
// deleted; they are the audit trail of what the rollback reverted.
func (r *PostgresBatchStore) MarkImportedRecordsFailed(ctx context.Context, batchID, reason string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE import_records
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE batch_id = $1 AND status = $4
	`, batchID, domain.RecordStatusFailed, reason, domain.RecordStatusImported)

	if err != nil {
		return 0, classifyError("mark imported records failed", err)
	}
	return int(tag.RowsAffected()), nil
}

// CreateError writes one structured failure detail row.
func (r *PostgresBatchStore) CreateError(ctx context.Context, importError *domain.ImportError) error {
	details, err := json.Marshal(importError.Details)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO import_errors (id, batch_id, entity_type, external_record_id,
			code, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, importError.ID, importError.BatchID, importError.EntityType,
		importError.ExternalRecordID, importError.Code, importError.Message,
		details, importError.CreatedAt)

	if err != nil {
		return classifyError("insert import error", err)
	}
	return nil
}

// AppendLog appends one audit log entry. Log rows are insert-only.
func (r *PostgresBatchStore) AppendLog(ctx context.Context, entry *domain.ImportLog) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal log detail: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO import_logs (id, batch_id, event, entity_type, message, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.BatchID, entry.Event, string(entry.EntityType),
		entry.Message, detail, entry.CreatedAt)

	if err != nil {
		return classifyError("insert import log", err)
	}
	return nil
}

// ListLogs returns a batch's audit timeline in insertion order.
func (r *PostgresBatchStore) ListLogs(ctx context.Context, batchID string) ([]domain.ImportLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_id, event, entity_type, message, detail, created_at
		FROM import_logs
		WHERE batch_id = $1
		ORDER BY created_at, id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query import logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ImportLog
	for rows.Next() {
		var entry domain.ImportLog
		var entityType string
		var detail []byte

		if err := rows.Scan(&entry.ID, &entry.BatchID, &entry.Event, &entityType,
			&entry.Message, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import log: %w", err)
		}

		entry.EntityType = domain.EntityType(entityType)
		if detail != nil {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal log detail: %w", err)
			}
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// CommittedMappings loads every external id linked to an internal id by
// a prior completed batch of this organization, grouped by entity type.
func (r *PostgresBatchStore) CommittedMappings(ctx context.Context, orgID uuid.UUID) (map[domain.EntityType]map[string]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.entity_type, r.external_record_id, r.internal_id
		FROM import_records r
		JOIN import_batches b ON b.id = r.batch_id
		WHERE b.organization_id = $1
		  AND b.status = $2
		  AND r.status = $3
		  AND r.internal_id IS NOT NULL
	`, orgID, domain.BatchStatusCompleted, domain.RecordStatusImported)
	if err != nil {
		return nil, fmt.Errorf("query committed mappings: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.EntityType]map[string]uuid.UUID)
	for rows.Next() {
		var entityType, externalID string
		var internalID uuid.UUID

		if err := rows.Scan(&entityType, &externalID, &internalID); err != nil {
			return nil, fmt.Errorf("scan committed mapping: %w", err)
		}

		entity := domain.EntityType(entityType)
		if out[entity] == nil {
			out[entity] = make(map[string]uuid.UUID)
		}
		out[entity][externalID] = internalID
	}

	return out, rows.Err()
}
