package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus represents the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusRolledBack BatchStatus = "rolled_back"
)

// Terminal reports whether a batch status is final. Terminal batches are
// never mutated again.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed || s == BatchStatusRolledBack
}

// ImportBatch identifies one migration run.
type ImportBatch struct {
	ID             string      `json:"id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	SourceSystem   string      `json:"source_system"`
	Status         BatchStatus `json:"status"`
	TotalRecords   int         `json:"total_records"`
	ProcessedCount int         `json:"processed_count"`
	FailedCount    int         `json:"failed_count"`
	ErrorLog       []string    `json:"error_log,omitempty"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// RecordStatus represents the outcome state of one source record.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusValidated RecordStatus = "validated"
	RecordStatusImported  RecordStatus = "imported"
	RecordStatusFailed    RecordStatus = "failed"
	RecordStatusSkipped   RecordStatus = "skipped"
)

// ImportRecord is the durable audit trail for one attempted source row.
// Records are never deleted, even when the batch rolls back; rollback
// only flips the status of imported rows to failed.
type ImportRecord struct {
	ID               string         `json:"id"`
	BatchID          string         `json:"batch_id"`
	EntityType       EntityType     `json:"entity_type"`
	ExternalRecordID string         `json:"external_record_id"`
	SourceData       map[string]any `json:"source_data,omitempty"`
	InternalID       *uuid.UUID     `json:"internal_id,omitempty"`
	Status           RecordStatus   `json:"status"`
	ErrorMessage     *string        `json:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ErrorCode classifies an import failure.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeReferenceNotFound   ErrorCode = "REFERENCE_NOT_FOUND"
	ErrCodeDuplicateRecord     ErrorCode = "DUPLICATE_RECORD"
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
	ErrCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrCodeTransactionFailed   ErrorCode = "TRANSACTION_FAILED"
	ErrCodeRollbackFailed      ErrorCode = "ROLLBACK_FAILED"
	ErrCodeUnknown             ErrorCode = "UNKNOWN_ERROR"
)

// ImportError is the structured failure detail persisted per failed
// record (import_errors table).
type ImportError struct {
	ID               string         `json:"id"`
	BatchID          string         `json:"batch_id"`
	EntityType       EntityType     `json:"entity_type"`
	ExternalRecordID string         `json:"external_record_id"`
	Code             ErrorCode      `json:"code"`
	Message          string         `json:"message"`
	Details          map[string]any `json:"details,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// LogEvent is an audit log event type.
type LogEvent string

const (
	LogEventStarted         LogEvent = "started"
	LogEventEntityStarted   LogEvent = "entity_started"
	LogEventEntityCompleted LogEvent = "entity_completed"
	LogEventCompleted       LogEvent = "completed"
	LogEventFailed          LogEvent = "failed"
	LogEventRolledBack      LogEvent = "rolled_back"
)

// ImportLog is one append-only audit log entry. Entries are never
// updated or deleted.
type ImportLog struct {
	ID         string         `json:"id"`
	BatchID    string         `json:"batch_id"`
	Event      LogEvent       `json:"event"`
	EntityType EntityType     `json:"entity_type,omitempty"`
	Message    string         `json:"message"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
