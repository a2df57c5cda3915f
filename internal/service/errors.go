package service

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/mapping"
	"github.com/emerginginv/trace-aid-sub011/internal/repository"
)

// ReferenceError reports an external foreign key that resolved to
// nothing: neither a row committed before the batch nor one imported
// earlier in it.
type ReferenceError struct {
	Entity     domain.EntityType
	Field      string
	Target     domain.EntityType
	ExternalID string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s.%s: no %s found for external id %q", e.Entity, e.Field, e.Target, e.ExternalID)
}

// classifyRecordError maps a record-level failure onto the error
// taxonomy and extracts structured detail for the import_errors row.
func classifyRecordError(err error) (domain.ErrorCode, map[string]any) {
	var refErr *ReferenceError
	if errors.As(err, &refErr) {
		return domain.ErrCodeReferenceNotFound, map[string]any{
			"field":       refErr.Field,
			"target":      string(refErr.Target),
			"external_id": refErr.ExternalID,
		}
	}

	var unmapped *mapping.UnmappedValueError
	if errors.As(err, &unmapped) {
		return domain.ErrCodeValidationFailed, map[string]any{
			"category": unmapped.Category,
			"value":    unmapped.Value,
		}
	}

	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]any, len(validationErrs))
		for field, fieldErr := range validationErrs {
			fields[field] = fieldErr.Error()
		}
		return domain.ErrCodeValidationFailed, fields
	}

	var storeErr *repository.StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, nil
	}

	return domain.ErrCodeUnknown, nil
}
