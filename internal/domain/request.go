package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityPayload groups the records of one entity type within a request.
// EntityType accepts any spelling CanonicalEntityType recognizes.
type EntityPayload struct {
	EntityType string         `json:"entity_type"`
	Records    []SourceRecord `json:"records"`
}

// ExecuteImportRequest is the engine's input contract for both dry-run
// and execution.
type ExecuteImportRequest struct {
	BatchID          string          `json:"batch_id,omitempty"`
	OrganizationID   uuid.UUID       `json:"organization_id"`
	UserID           uuid.UUID       `json:"user_id"`
	SourceSystemName string          `json:"source_system_name"`
	Entities         []EntityPayload `json:"entities"`
	MappingConfig    *MappingConfig  `json:"mapping_config,omitempty"`
}

// ImportErrorDetail is one caller-facing error in the response.
type ImportErrorDetail struct {
	EntityType       string         `json:"entity_type"`
	ExternalRecordID string         `json:"external_record_id"`
	ErrorCode        ErrorCode      `json:"error_code"`
	ErrorMessage     string         `json:"error_message"`
	ErrorDetails     map[string]any `json:"error_details,omitempty"`
}

// ExecuteImportResponse is the engine's output contract.
type ExecuteImportResponse struct {
	Success           bool                         `json:"success"`
	BatchID           string                       `json:"batch_id"`
	SuccessCount      int                          `json:"success_count"`
	FailedCount       int                          `json:"failed_count"`
	SkippedCount      int                          `json:"skipped_count"`
	Errors            []ImportErrorDetail          `json:"errors"`
	ReferenceMap      map[string]map[string]string `json:"reference_map"`
	RollbackPerformed bool                         `json:"rollback_performed"`
}

// ImportIssue is one blocking error or non-blocking warning collected by
// the dry-run validator.
type ImportIssue struct {
	EntityType       string    `json:"entity_type"`
	ExternalRecordID string    `json:"external_record_id"`
	Field            string    `json:"field,omitempty"`
	Code             ErrorCode `json:"code"`
	Message          string    `json:"message"`
}

// Dry-run record classifications.
const (
	DryRunActionCreate = "create"
	DryRunActionUpdate = "update"
	DryRunActionSkip   = "skip"
)

// RecordPreview is the per-record dry-run detail.
type RecordPreview struct {
	EntityType       string                `json:"entity_type"`
	ExternalRecordID string                `json:"external_record_id"`
	Action           string                `json:"action"`
	Original         map[string]any        `json:"original"`
	Normalized       map[string]any        `json:"normalized,omitempty"`
	Changes          []NormalizationChange `json:"changes,omitempty"`
	Mappings         []AppliedMapping      `json:"mappings,omitempty"`
	Errors           []ImportIssue         `json:"errors,omitempty"`
	Warnings         []ImportIssue         `json:"warnings,omitempty"`
}

// DryRunResult is the non-persisted aggregate produced by the dry-run
// validator. Two runs over identical input and committed state differ
// only in GeneratedAt and Duration.
type DryRunResult struct {
	RecordsToCreate      int             `json:"records_to_create"`
	RecordsToUpdate      int             `json:"records_to_update"`
	RecordsToSkip        int             `json:"records_to_skip"`
	Errors               []ImportIssue   `json:"errors"`
	Warnings             []ImportIssue   `json:"warnings"`
	Records              []RecordPreview `json:"records"`
	NormalizationSummary map[string]int  `json:"normalization_summary"`
	GeneratedAt          time.Time       `json:"generated_at"`
	Duration             time.Duration   `json:"duration"`
}
