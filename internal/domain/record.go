package domain

import "github.com/google/uuid"

// SourceRecord is one raw record as handed to the engine by the file
// parser: a loosely-typed field bag plus the source system's identifier.
type SourceRecord struct {
	ExternalRecordID string         `json:"external_record_id"`
	Data             map[string]any `json:"data"`
	SourceData       map[string]any `json:"source_data,omitempty"`
}

// Raw returns the payload preserved on the record's audit row. Callers
// that send no separate source_data still get their data echoed back.
func (r SourceRecord) Raw() map[string]any {
	if r.SourceData != nil {
		return r.SourceData
	}
	return r.Data
}

// ResolvedRecord is the engine-built, persistence-ready form of one
// source record: every external_* pointer replaced by an internal id and
// every remaining column checked against the entity catalog. It is
// always constructed fresh; the source Data map is never mutated.
type ResolvedRecord struct {
	Entity           EntityType
	ExternalRecordID string
	Columns          map[string]any
}

// CaseID returns the resolved case reference for entities that carry
// one, or uuid.Nil when absent.
func (r *ResolvedRecord) CaseID() uuid.UUID {
	if id, ok := r.Columns["case_id"].(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// NormalizationChange records one field-level normalization for audit
// and dry-run display.
type NormalizationChange struct {
	Field      string `json:"field"`
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Rule       string `json:"rule"`
}
