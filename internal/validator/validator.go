package validator

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// Validator provides structural validation for import requests and for
// the per-entity record shapes before resolution runs.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRequest structurally checks an import request before the
// engine runs. All problems are aggregated into the returned error.
func (v *Validator) ValidateRequest(req *domain.ExecuteImportRequest) error {
	errs := validation.Errors{}

	if req.OrganizationID == uuid.Nil {
		errs["organization_id"] = validation.NewError("organization_id_required", "organization_id is required")
	}
	if req.UserID == uuid.Nil {
		errs["user_id"] = validation.NewError("user_id_required", "user_id is required")
	}
	if req.SourceSystemName == "" {
		errs["source_system_name"] = validation.NewError("source_system_name_required", "source_system_name is required")
	}
	if len(req.Entities) == 0 {
		errs["entities"] = validation.NewError("entities_required", "at least one entity payload is required")
	}

	// Uniqueness is per canonical entity, not per payload: payloads
	// whose spellings canonicalize to the same entity are merged before
	// processing, so their ids share one namespace.
	seenByEntity := make(map[domain.EntityType]map[string]bool)

	for i, payload := range req.Entities {
		entity, ok := domain.CanonicalEntityType(payload.EntityType)
		if !ok {
			errs[fmt.Sprintf("entities.%d.entity_type", i)] = validation.NewError(
				"unknown_entity_type", fmt.Sprintf("unknown entity type %q", payload.EntityType))
			continue
		}

		seen := seenByEntity[entity]
		if seen == nil {
			seen = make(map[string]bool, len(payload.Records))
			seenByEntity[entity] = seen
		}
		for j, rec := range payload.Records {
			if rec.ExternalRecordID == "" {
				errs[fmt.Sprintf("entities.%d.records.%d.external_record_id", i, j)] = validation.NewError(
					"external_record_id_required", "external_record_id is required")
				continue
			}
			if seen[rec.ExternalRecordID] {
				errs[fmt.Sprintf("entities.%d.records.%d.external_record_id", i, j)] = validation.NewError(
					"duplicate_external_record_id",
					fmt.Sprintf("external_record_id %q appears more than once for %s", rec.ExternalRecordID, entity))
			}
			seen[rec.ExternalRecordID] = true
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// recordRules holds the per-entity map rules. Keys not listed pass
// through unchecked; the resolver drops anything outside the entity
// catalog.
var recordRules = map[domain.EntityType]validation.MapRule{
	domain.EntityClient: validation.Map(
		validation.Key("name", validation.Required.Error("name_required")),
		validation.Key("email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityContact: validation.Map(
		validation.Key("external_account_id", validation.Required.Error("external_account_id_required")),
		validation.Key("last_name", validation.Required.Error("last_name_required")),
		validation.Key("email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityCase: validation.Map(
		validation.Key("external_account_id", validation.Required.Error("external_account_id_required")),
		validation.Key("case_number", validation.Required.Error("case_number_required")),
		validation.Key("case_manager_email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntitySubject: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
		validation.Key("last_name", validation.Required.Error("last_name_required")),
	).AllowExtraKeys(),
	domain.EntityUpdate: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
		validation.Key("update_type", validation.Required.Error("update_type_required")),
		validation.Key("created_by_email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityActivity: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
		validation.Key("activity_type", validation.Required.Error("activity_type_required")),
		validation.Key("assigned_to_email", is.Email.Error("invalid_email_format")).Optional(),
		validation.Key("created_by_email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityTimeEntry: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
		validation.Key("hours", validation.Required.Error("hours_required")),
		validation.Key("user_email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityExpense: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
		validation.Key("amount", validation.Required.Error("amount_required")),
		validation.Key("user_email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityBudgetAdjustment: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
		validation.Key("amount", validation.Required.Error("amount_required")),
		validation.Key("created_by_email", is.Email.Error("invalid_email_format")).Optional(),
	).AllowExtraKeys(),
	domain.EntityBudget: validation.Map(
		validation.Key("external_case_id", validation.Required.Error("external_case_id_required")),
	).AllowExtraKeys(),
}

// ValidateRecord checks one record's field bag against its entity rules.
func (v *Validator) ValidateRecord(entity domain.EntityType, fields map[string]any) error {
	rule, ok := recordRules[entity]
	if !ok {
		return validation.Errors{
			"entity_type": validation.NewError("unknown_entity_type", fmt.Sprintf("unknown entity type %q", entity)),
		}
	}
	return validation.Validate(fields, rule)
}

// ConvertValidationErrors converts ozzo validation errors to caller
// facing import issues.
func ConvertValidationErrors(entity domain.EntityType, externalRecordID string, err error) []domain.ImportIssue {
	var issues []domain.ImportIssue

	if ve, ok := err.(validation.Errors); ok {
		for field, fieldErr := range ve {
			issues = append(issues, domain.ImportIssue{
				EntityType:       string(entity),
				ExternalRecordID: externalRecordID,
				Field:            field,
				Code:             domain.ErrCodeValidationFailed,
				Message:          fieldErr.Error(),
			})
		}
	} else if err != nil {
		issues = append(issues, domain.ImportIssue{
			EntityType:       string(entity),
			ExternalRecordID: externalRecordID,
			Code:             domain.ErrCodeValidationFailed,
			Message:          err.Error(),
		})
	}

	return issues
}

// AppendValidationErrors appends the converted issues to an existing
// slice in place.
func AppendValidationErrors(issues *[]domain.ImportIssue, entity domain.EntityType, externalRecordID string, err error) {
	*issues = append(*issues, ConvertValidationErrors(entity, externalRecordID, err)...)
}
