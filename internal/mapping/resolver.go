// Package mapping resolves external category values (update types, event
// types, ...) to canonical picklist values according to a MappingConfig.
package mapping

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// PicklistStore provides the canonical values for one organization's
// picklist categories and creates new ones on demand.
type PicklistStore interface {
	ListValues(ctx context.Context, orgID uuid.UUID, category string) ([]string, error)
	CreateValue(ctx context.Context, orgID uuid.UUID, category, value string) error
}

// UnmappedValueError reports an external value rejected under the skip
// policy. The owning record fails validation.
type UnmappedValueError struct {
	Category string
	Value    string
}

func (e *UnmappedValueError) Error() string {
	return fmt.Sprintf("no mapping for %s value %q and unmapped action is skip", e.Category, e.Value)
}

// Resolver resolves category values for one batch. Within a batch a
// given external value always resolves to the same result and a value is
// auto-created at most once; both guarantees come from the per-batch
// caches below. Resolver is not safe for concurrent use, matching the
// engine's strictly sequential processing.
type Resolver struct {
	store  PicklistStore
	orgID  uuid.UUID
	config *domain.MappingConfig
	dryRun bool

	existing map[string]map[string]bool
	cache    map[string]domain.MappingResult
}

// NewResolver creates a resolver that persists auto-created values.
func NewResolver(store PicklistStore, orgID uuid.UUID, config *domain.MappingConfig) *Resolver {
	return newResolver(store, orgID, config, false)
}

// NewDryRunResolver creates a resolver that reports would-be creations
// without writing anything.
func NewDryRunResolver(store PicklistStore, orgID uuid.UUID, config *domain.MappingConfig) *Resolver {
	return newResolver(store, orgID, config, true)
}

func newResolver(store PicklistStore, orgID uuid.UUID, config *domain.MappingConfig, dryRun bool) *Resolver {
	return &Resolver{
		store:    store,
		orgID:    orgID,
		config:   config,
		dryRun:   dryRun,
		existing: make(map[string]map[string]bool),
		cache:    make(map[string]domain.MappingResult),
	}
}

// Resolve maps one external category value to its canonical value.
// Match order: exact canonical value, configured mapping, auto-create,
// then the category's unmapped action.
func (r *Resolver) Resolve(ctx context.Context, category, externalValue string) (domain.MappingResult, error) {
	cacheKey := category + "\x00" + externalValue
	if res, ok := r.cache[cacheKey]; ok {
		return res, nil
	}

	values, err := r.loadValues(ctx, category)
	if err != nil {
		return domain.MappingResult{}, err
	}

	cfg := r.config.Category(category)

	var res domain.MappingResult
	switch {
	case values[externalValue]:
		res = domain.MappingResult{Value: externalValue, MatchType: domain.MatchExact}

	case r.lookupMapping(cfg, externalValue) != nil:
		tm := r.lookupMapping(cfg, externalValue)
		if !values[tm.CanonicalValue] && tm.AutoCreate {
			if err := r.createValue(ctx, category, tm.CanonicalValue); err != nil {
				return domain.MappingResult{}, err
			}
			res = domain.MappingResult{Value: tm.CanonicalValue, WasCreated: true, MatchType: domain.MatchMapped}
		} else {
			res = domain.MappingResult{Value: tm.CanonicalValue, MatchType: domain.MatchMapped}
		}

	case cfg.AutoCreate:
		if err := r.createValue(ctx, category, externalValue); err != nil {
			return domain.MappingResult{}, err
		}
		res = domain.MappingResult{Value: externalValue, WasCreated: true, MatchType: domain.MatchCreated}

	default:
		switch cfg.UnmappedAction {
		case domain.UnmappedUseDefault:
			res = domain.MappingResult{Value: cfg.DefaultValue, MatchType: domain.MatchDefault}
		case domain.UnmappedUseOriginal:
			res = domain.MappingResult{Value: externalValue, MatchType: domain.MatchOriginal}
		default:
			return domain.MappingResult{}, &UnmappedValueError{Category: category, Value: externalValue}
		}
	}

	r.cache[cacheKey] = res
	return res, nil
}

func (r *Resolver) lookupMapping(cfg domain.CategoryConfig, externalValue string) *domain.TypeMapping {
	for i := range cfg.Mappings {
		if cfg.Mappings[i].ExternalValue == externalValue {
			return &cfg.Mappings[i]
		}
	}
	return nil
}

func (r *Resolver) loadValues(ctx context.Context, category string) (map[string]bool, error) {
	if values, ok := r.existing[category]; ok {
		return values, nil
	}

	list, err := r.store.ListValues(ctx, r.orgID, category)
	if err != nil {
		return nil, fmt.Errorf("list %s values: %w", category, err)
	}

	values := make(map[string]bool, len(list))
	for _, v := range list {
		values[v] = true
	}
	r.existing[category] = values
	return values, nil
}

func (r *Resolver) createValue(ctx context.Context, category, value string) error {
	if !r.dryRun {
		if err := r.store.CreateValue(ctx, r.orgID, category, value); err != nil {
			return fmt.Errorf("create %s value %q: %w", category, value, err)
		}
	}
	r.existing[category][value] = true
	return nil
}
