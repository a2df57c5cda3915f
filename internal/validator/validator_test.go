package validator_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/validator"
)

func validRequest() *domain.ExecuteImportRequest {
	return &domain.ExecuteImportRequest{
		OrganizationID:   uuid.New(),
		UserID:           uuid.New(),
		SourceSystemName: "legacy-crm",
		Entities: []domain.EntityPayload{
			{EntityType: "clients", Records: []domain.SourceRecord{
				{ExternalRecordID: "C1", Data: map[string]any{"name": "Acme"}},
			}},
		},
	}
}

func TestValidateRequest(t *testing.T) {
	v := validator.NewValidator()

	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, v.ValidateRequest(validRequest()))
	})

	t.Run("missing organization", func(t *testing.T) {
		req := validRequest()
		req.OrganizationID = uuid.Nil
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("missing user", func(t *testing.T) {
		req := validRequest()
		req.UserID = uuid.Nil
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("missing source system", func(t *testing.T) {
		req := validRequest()
		req.SourceSystemName = ""
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("no entities", func(t *testing.T) {
		req := validRequest()
		req.Entities = nil
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("unknown entity type", func(t *testing.T) {
		req := validRequest()
		req.Entities[0].EntityType = "invoices"
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("missing external record id", func(t *testing.T) {
		req := validRequest()
		req.Entities[0].Records[0].ExternalRecordID = ""
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("duplicate external record id within entity", func(t *testing.T) {
		req := validRequest()
		req.Entities[0].Records = append(req.Entities[0].Records, domain.SourceRecord{
			ExternalRecordID: "C1",
			Data:             map[string]any{"name": "Acme Two"},
		})
		assert.Error(t, v.ValidateRequest(req))
	})

	t.Run("duplicate external record id across alias payloads", func(t *testing.T) {
		req := validRequest()
		req.Entities = append(req.Entities, domain.EntityPayload{
			EntityType: "account",
			Records: []domain.SourceRecord{
				{ExternalRecordID: "C1", Data: map[string]any{"name": "Acme Two"}},
			},
		})
		err := v.ValidateRequest(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "appears more than once")
	})

	t.Run("same external record id in different entities", func(t *testing.T) {
		req := validRequest()
		req.Entities = append(req.Entities, domain.EntityPayload{
			EntityType: "contacts",
			Records: []domain.SourceRecord{
				{ExternalRecordID: "C1", Data: map[string]any{
					"external_account_id": "C1", "last_name": "Doe",
				}},
			},
		})
		assert.NoError(t, v.ValidateRequest(req))
	})

	t.Run("aggregates all problems", func(t *testing.T) {
		req := validRequest()
		req.OrganizationID = uuid.Nil
		req.SourceSystemName = ""

		err := v.ValidateRequest(req)

		require.Error(t, err)
		issues := validator.ConvertValidationErrors(domain.EntityClient, "", err)
		assert.Len(t, issues, 2)
	})
}

func TestValidateRecord(t *testing.T) {
	v := validator.NewValidator()

	tests := []struct {
		name    string
		entity  domain.EntityType
		fields  map[string]any
		wantErr bool
	}{
		{"client ok", domain.EntityClient, map[string]any{"name": "Acme"}, false},
		{"client missing name", domain.EntityClient, map[string]any{"phone": "5551234567"}, true},
		{"client bad email", domain.EntityClient, map[string]any{"name": "Acme", "email": "not-an-email"}, true},
		{"contact ok", domain.EntityContact, map[string]any{"external_account_id": "C1", "last_name": "Doe"}, false},
		{"contact missing account", domain.EntityContact, map[string]any{"last_name": "Doe"}, true},
		{"case ok", domain.EntityCase, map[string]any{"external_account_id": "C1", "case_number": "2024-001"}, false},
		{"case missing number", domain.EntityCase, map[string]any{"external_account_id": "C1"}, true},
		{"subject ok", domain.EntitySubject, map[string]any{"external_case_id": "CASE1", "last_name": "Smith"}, false},
		{"update ok", domain.EntityUpdate, map[string]any{"external_case_id": "CASE1", "update_type": "Case Note"}, false},
		{"update missing type", domain.EntityUpdate, map[string]any{"external_case_id": "CASE1"}, true},
		{"activity ok", domain.EntityActivity, map[string]any{"external_case_id": "CASE1", "activity_type": "Interview"}, false},
		{"time entry ok", domain.EntityTimeEntry, map[string]any{"external_case_id": "CASE1", "hours": 2.5}, false},
		{"time entry missing hours", domain.EntityTimeEntry, map[string]any{"external_case_id": "CASE1"}, true},
		{"expense ok", domain.EntityExpense, map[string]any{"external_case_id": "CASE1", "amount": 120.0}, false},
		{"budget adjustment ok", domain.EntityBudgetAdjustment, map[string]any{"external_case_id": "CASE1", "amount": 500.0}, false},
		{"budget ok", domain.EntityBudget, map[string]any{"external_case_id": "CASE1", "budget_amount": 10000.0}, false},
		{"budget missing case", domain.EntityBudget, map[string]any{"budget_amount": 10000.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRecord(tt.entity, tt.fields)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRecordAllowsExtraKeys(t *testing.T) {
	v := validator.NewValidator()

	err := v.ValidateRecord(domain.EntityClient, map[string]any{
		"name":         "Acme",
		"legacy_field": "kept until resolution drops it",
	})

	assert.NoError(t, err)
}

func TestConvertValidationErrors(t *testing.T) {
	v := validator.NewValidator()

	err := v.ValidateRecord(domain.EntityContact, map[string]any{"email": "bad"})
	require.Error(t, err)

	issues := validator.ConvertValidationErrors(domain.EntityContact, "CT1", err)

	require.Len(t, issues, 3)
	for _, issue := range issues {
		assert.Equal(t, "contact", issue.EntityType)
		assert.Equal(t, "CT1", issue.ExternalRecordID)
		assert.Equal(t, domain.ErrCodeValidationFailed, issue.Code)
		assert.NotEmpty(t, issue.Field)
	}
}

func TestAppendValidationErrors(t *testing.T) {
	var issues []domain.ImportIssue

	validator.AppendValidationErrors(&issues, domain.EntityClient, "C1", nil)
	assert.Empty(t, issues)

	v := validator.NewValidator()
	err := v.ValidateRecord(domain.EntityClient, map[string]any{})
	validator.AppendValidationErrors(&issues, domain.EntityClient, "C1", err)
	assert.Len(t, issues, 1)
}
