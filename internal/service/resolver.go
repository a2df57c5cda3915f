package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// refRule resolves one external_*_id field against a target category.
type refRule struct {
	field  string
	column string
	target domain.EntityType
}

// emailRule resolves one *_email field against the user directory.
// Authored-by fields fall back to the importing user; assignment fields
// resolve to nothing rather than silently defaulting.
type emailRule struct {
	field    string
	column   string
	authored bool
}

type entityRules struct {
	refs   []refRule
	emails []emailRule
	// emailListField/emailListColumn resolve a list of emails into a
	// list of user ids, dropping unresolved entries (assignment-style).
	emailListField  string
	emailListColumn string
}

var resolutionRules = map[domain.EntityType]entityRules{
	domain.EntityClient: {},
	domain.EntityContact: {
		refs: []refRule{{"external_account_id", "client_id", domain.EntityClient}},
	},
	domain.EntityCase: {
		refs: []refRule{
			{"external_account_id", "client_id", domain.EntityClient},
			{"external_contact_id", "contact_id", domain.EntityContact},
			{"external_parent_case_id", "parent_case_id", domain.EntityCase},
		},
		emails:          []emailRule{{"case_manager_email", "case_manager_id", false}},
		emailListField:  "investigator_emails",
		emailListColumn: "investigator_ids",
	},
	domain.EntitySubject: {
		refs: []refRule{{"external_case_id", "case_id", domain.EntityCase}},
	},
	domain.EntityUpdate: {
		refs: []refRule{
			{"external_case_id", "case_id", domain.EntityCase},
			{"external_subject_id", "subject_id", domain.EntitySubject},
		},
		emails: []emailRule{{"created_by_email", "created_by_id", true}},
	},
	domain.EntityActivity: {
		refs: []refRule{
			{"external_case_id", "case_id", domain.EntityCase},
			{"external_subject_id", "subject_id", domain.EntitySubject},
		},
		emails: []emailRule{
			{"assigned_to_email", "assigned_to_id", false},
			{"created_by_email", "created_by_id", true},
		},
	},
	domain.EntityTimeEntry: {
		refs: []refRule{
			{"external_case_id", "case_id", domain.EntityCase},
			{"external_activity_id", "activity_id", domain.EntityActivity},
		},
		emails: []emailRule{{"user_email", "user_id", true}},
	},
	domain.EntityExpense: {
		refs: []refRule{
			{"external_case_id", "case_id", domain.EntityCase},
			{"external_activity_id", "activity_id", domain.EntityActivity},
		},
		emails: []emailRule{{"user_email", "user_id", true}},
	},
	domain.EntityBudgetAdjustment: {
		refs:   []refRule{{"external_case_id", "case_id", domain.EntityCase}},
		emails: []emailRule{{"created_by_email", "created_by_id", true}},
	},
	domain.EntityBudget: {
		refs: []refRule{{"external_case_id", "case_id", domain.EntityCase}},
	},
}

// ResolveReferences builds the persistence-ready form of one record. It
// is a pure function of its inputs: no I/O, and the source field bag is
// never mutated. Every external_* pointer is replaced by an internal id
// or the record is rejected; fields outside the entity catalog are
// dropped. Returned warnings cover unresolved assignment emails.
func ResolveReferences(
	catalog *domain.Catalog,
	entity domain.EntityType,
	externalRecordID string,
	fields map[string]any,
	refs *domain.ReferenceMap,
	defaultActorID uuid.UUID,
) (*domain.ResolvedRecord, []domain.ImportIssue, error) {
	rules := resolutionRules[entity]
	spec, _ := catalog.Spec(entity)

	columns := make(map[string]any)
	var warnings []domain.ImportIssue

	for _, rule := range rules.refs {
		externalID := stringField(fields, rule.field)
		if externalID == "" {
			continue
		}
		id, ok := refs.Lookup(rule.target, externalID)
		if !ok {
			return nil, nil, &ReferenceError{
				Entity:     entity,
				Field:      rule.field,
				Target:     rule.target,
				ExternalID: externalID,
			}
		}
		columns[rule.column] = id
	}

	for _, rule := range rules.emails {
		email := stringField(fields, rule.field)
		if email == "" {
			if rule.authored {
				columns[rule.column] = defaultActorID
			}
			continue
		}
		if id, ok := refs.UserByEmail(email); ok {
			columns[rule.column] = id
			continue
		}
		if rule.authored {
			columns[rule.column] = defaultActorID
			warnings = append(warnings, domain.ImportIssue{
				EntityType:       string(entity),
				ExternalRecordID: externalRecordID,
				Field:            rule.field,
				Code:             domain.ErrCodeValidationFailed,
				Message:          "no user found for " + email + "; attributing to the importing user",
			})
		} else {
			warnings = append(warnings, domain.ImportIssue{
				EntityType:       string(entity),
				ExternalRecordID: externalRecordID,
				Field:            rule.field,
				Code:             domain.ErrCodeValidationFailed,
				Message:          "no user found for " + email + "; leaving unassigned",
			})
		}
	}

	if rules.emailListField != "" {
		if emails := stringListField(fields, rules.emailListField); len(emails) > 0 {
			ids := make([]uuid.UUID, 0, len(emails))
			for _, email := range emails {
				if id, ok := refs.UserByEmail(email); ok {
					ids = append(ids, id)
				} else {
					warnings = append(warnings, domain.ImportIssue{
						EntityType:       string(entity),
						ExternalRecordID: externalRecordID,
						Field:            rules.emailListField,
						Code:             domain.ErrCodeValidationFailed,
						Message:          "no user found for " + email + "; dropped from assignment list",
					})
				}
			}
			if len(ids) > 0 {
				columns[rules.emailListColumn] = ids
			}
		}
	}

	// Carry the intrinsic business fields; anything not in the catalog
	// spec is dropped here, never persisted.
	for _, col := range spec.Columns {
		if _, resolved := columns[col]; resolved {
			continue
		}
		if value, ok := fields[col]; ok {
			columns[col] = value
		}
	}

	return &domain.ResolvedRecord{
		Entity:           entity,
		ExternalRecordID: externalRecordID,
		Columns:          columns,
	}, warnings, nil
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return strings.TrimSpace(s)
}

func stringListField(fields map[string]any, name string) []string {
	switch v := fields[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
